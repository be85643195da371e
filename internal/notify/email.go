package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/sn-foods/commerce-api/internal/domain"
)

// ApprovalEmail renders the subject and HTML body for an order approval
// notification. Monetary figures come from the order's stored values, not
// re-computation, so the email always matches what was persisted.
func ApprovalEmail(recipient domain.Recipient, order *domain.Order) (subject, body string) {
	subject = fmt.Sprintf("Order %s approved", order.OrderNumber)

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(recipient.Name))
	fmt.Fprintf(&b, "<p>Good news: your order <strong>%s</strong> has been approved and is being prepared.</p>",
		html.EscapeString(order.OrderNumber))

	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0">`)
	b.WriteString("<tr><th>Product</th><th>Qty</th><th>Unit</th><th>Unit price</th><th>Total</th></tr>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td><td>$%.2f</td><td>$%.2f</td></tr>",
			html.EscapeString(item.ProductName),
			item.Quantity,
			html.EscapeString(item.Unit),
			item.UnitPrice,
			item.TotalPrice,
		)
	}
	fmt.Fprintf(&b, `<tr><td colspan="4" align="right">Subtotal</td><td>$%.2f</td></tr>`, order.Subtotal)
	fmt.Fprintf(&b, `<tr><td colspan="4" align="right">GST (10%%)</td><td>$%.2f</td></tr>`, order.TaxAmount)
	fmt.Fprintf(&b, `<tr><td colspan="4" align="right"><strong>Total</strong></td><td><strong>$%.2f</strong></td></tr>`, order.TotalAmount)
	b.WriteString("</table>")

	if order.Notes != "" {
		fmt.Fprintf(&b, "<p>Notes: %s</p>", html.EscapeString(order.Notes))
	}

	b.WriteString("<p>Thanks for ordering with SN Foods.</p>")
	b.WriteString("</body></html>")

	return subject, b.String()
}

// InviteEmail renders the subject and HTML body for a user invitation.
// The recipient signs in through the regular auth flow; the invitation's
// role is applied to their profile on first sign-in.
func InviteEmail(invitation *domain.UserInvitation, signInURL string) (subject, body string) {
	subject = "You have been invited to SN Foods Online Ordering"

	greeting := "Hi"
	if invitation.FullName != "" {
		greeting = fmt.Sprintf("Hi %s", html.EscapeString(invitation.FullName))
	}

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>%s,</p>", greeting)
	fmt.Fprintf(&b, "<p>You have been invited to the SN Foods online ordering portal as <strong>%s</strong>.</p>",
		html.EscapeString(string(invitation.Role)))
	fmt.Fprintf(&b, `<p>Sign in with this email address (%s) to get started:</p>`,
		html.EscapeString(invitation.Email))
	fmt.Fprintf(&b, `<p><a href="%s">%s</a></p>`,
		html.EscapeString(signInURL), html.EscapeString(signInURL))
	b.WriteString("<p>If you weren't expecting this invitation you can ignore this email.</p>")
	b.WriteString("<p>The SN Foods team</p>")
	b.WriteString("</body></html>")

	return subject, b.String()
}
