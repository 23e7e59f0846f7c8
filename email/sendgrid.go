package email

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/closings_backend/config"
	"bitbucket.org/mmdatafocus/closings_backend/models"
	"bitbucket.org/mmdatafocus/closings_backend/workflow"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SendGridNotifier emails plain-text closing snapshots to the manager
// mailbox. It satisfies workflow.Notifier, so delivery runs on the engine's
// detached goroutines and any failure here is log-only.
type SendGridNotifier struct {
	client   *sendgrid.Client
	from     *mail.Email
	to       *mail.Email
	logger   *logrus.Logger
	disabled bool
}

func NewSendGridNotifier(cfg *config.Config, logger *logrus.Logger) *SendGridNotifier {
	n := &SendGridNotifier{
		from:   mail.NewEmail(cfg.EmailFromName, cfg.EmailFrom),
		to:     mail.NewEmail("", cfg.ManagerEmail),
		logger: logger,
	}
	if cfg.SendGridAPIKey == "" || cfg.ManagerEmail == "" {
		logger.Warn("SendGrid not configured, submission and verification emails disabled")
		n.disabled = true
		return n
	}
	n.client = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	return n
}

func (n *SendGridNotifier) NotifySubmission(ctx context.Context, notice workflow.SubmissionNotice) error {
	if n.disabled {
		return nil
	}
	prefix := "🧾 Closing Submitted"
	kind := "First Submission"
	if notice.Reason == models.SubmissionReasonResubmission {
		prefix = "🔄 Closing Re-Submitted"
		kind = "Re-Submission After Needs Update"
	}
	subject := fmt.Sprintf("%s — %s (%s)", prefix, notice.StoreName, notice.BusinessDate)

	f := notice.Fields
	var b strings.Builder
	fmt.Fprintf(&b, "Closing Report Notification\n\n")
	fmt.Fprintf(&b, "Store: %s\n", notice.StoreName)
	fmt.Fprintf(&b, "Business Date: %s\n", notice.BusinessDate)
	fmt.Fprintf(&b, "Submitted By: %s\n\n", notice.SubmittedBy)
	fmt.Fprintf(&b, "Submission Type:\n%s\n\n", kind)
	section(&b, "SALES SUMMARY")
	fmt.Fprintf(&b, "Total Sales: %s\n", peso(f["Total Sales"]))
	fmt.Fprintf(&b, "Net Sales:   %s\n\n", peso(f["Net Sales"]))
	section(&b, "PAYMENTS")
	fmt.Fprintf(&b, "Cash:           %s\n", peso(f["Cash Payments"]))
	fmt.Fprintf(&b, "Card:           %s\n", peso(f["Card Payments"]))
	fmt.Fprintf(&b, "Digital:        %s\n", peso(f["Digital Payments"]))
	fmt.Fprintf(&b, "Grab:           %s\n", peso(f["Grab Payments"]))
	fmt.Fprintf(&b, "Voucher:        %s\n", peso(f["Voucher Payments"]))
	fmt.Fprintf(&b, "Bank Transfer:  %s\n\n", peso(f["Bank Transfer Payments"]))
	section(&b, "CASH HANDLING")
	fmt.Fprintf(&b, "Actual Cash Counted: %s\n", peso(f["Actual Cash Counted"]))
	fmt.Fprintf(&b, "Cash Float:          %s\n\n", peso(f["Cash Float"]))
	fmt.Fprintf(&b, "----------------------------------\nThis is an automated message.\n")

	return n.send(ctx, subject, b.String(), "submission")
}

func (n *SendGridNotifier) NotifyVerification(ctx context.Context, notice workflow.VerificationNotice) error {
	if n.disabled {
		return nil
	}
	f := notice.Fields
	netSales := f["Net Sales"]

	notes := notice.Notes
	if notes == "" {
		notes = "— None —"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CLOSING VERIFIED ✅\n\n")
	fmt.Fprintf(&b, "Store: %s\n", notice.StoreName)
	fmt.Fprintf(&b, "Business Date: %s\n", notice.BusinessDate)
	fmt.Fprintf(&b, "Cashier in Charge: %s\n", notice.Cashier)
	fmt.Fprintf(&b, "Verified By: %s\n\n", notice.VerifiedBy)
	section(&b, "MANAGER NOTES")
	fmt.Fprintf(&b, "%s\n\n", notes)
	section(&b, "SALES OVERVIEW")
	fmt.Fprintf(&b, "Total Sales: %s\n", peso(f["Total Sales"]))
	fmt.Fprintf(&b, "Net Sales:   %s\n\n", peso(netSales))
	section(&b, "BUDGET UTILIZATION")
	fmt.Fprintf(&b, "Kitchen Budget:     %s (%s)\n", peso(f["Kitchen Budget"]), percent(f["Kitchen Budget"], netSales))
	fmt.Fprintf(&b, "Bar Budget:         %s (%s)\n", peso(f["Bar Budget"]), percent(f["Bar Budget"], netSales))
	fmt.Fprintf(&b, "Non-Food Budget:    %s (%s)\n", peso(f["Non-Food Budget"]), percent(f["Non-Food Budget"], netSales))
	fmt.Fprintf(&b, "Staff Meal Budget:  %s (%s)\n\n", peso(f["Staff Meal Budget"]), percent(f["Staff Meal Budget"], netSales))
	fmt.Fprintf(&b, "Total Budgets:      %s (%s)\n\n", peso(f["Total Budgets"]), percent(f["Total Budgets"], netSales))
	section(&b, "VARIANCE")
	fmt.Fprintf(&b, "Variance: %s\n\n", peso(f["Variance"]))
	section(&b, "DEPOSITS & TRANSFERS")
	fmt.Fprintf(&b, "Cash for Deposit: %s\n", peso(f["Cash for Deposit"]))
	fmt.Fprintf(&b, "Bank Transfers:   %s\n\n", peso(f["Bank Transfer Payments"]))
	fmt.Fprintf(&b, "----------------------------------\nThis closing has been verified and locked.\nThis is an automated message.\n")

	subject := fmt.Sprintf("✅ Closing Verified — %s (%s)", notice.StoreName, notice.BusinessDate)
	return n.send(ctx, subject, b.String(), "verification")
}

func (n *SendGridNotifier) send(ctx context.Context, subject, body, kind string) error {
	message := mail.NewSingleEmail(n.from, subject, n.to, body, "")
	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid %s email rejected with status %d", kind, resp.StatusCode)
	}
	n.logger.WithFields(logrus.Fields{
		"kind":   kind,
		"status": resp.StatusCode,
	}).Info("notification email sent")
	return nil
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "----------------------------------\n%s\n----------------------------------\n", title)
}

// peso renders a spaced-key field value as "₱1,234.56", or an em dash
// placeholder when the value is absent or unreadable.
func peso(v interface{}) string {
	d, ok := asDecimal(v)
	if !ok {
		return "—"
	}
	return "₱" + groupThousands(d.StringFixed(2))
}

func percent(v, base interface{}) string {
	d, ok := asDecimal(v)
	if !ok {
		return "—"
	}
	bd, ok := asDecimal(base)
	if !ok || bd.IsZero() {
		return "—"
	}
	return d.Div(bd).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func asDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// groupThousands inserts comma separators into a fixed-2 decimal string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	var out strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	res := out.String() + "." + fracPart
	if neg {
		res = "-" + res
	}
	return res
}
