package notify

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// InvitationData fills the link invitation mail.
type InvitationData struct {
	Company     string
	ClientName  string
	ProjectType string
	QuoteNumber string
	Link        string
	ExpiresAt   string
}

// SignedData fills the signing confirmation mail.
type SignedData struct {
	Company     string
	ClientName  string
	ProjectType string
	QuoteNumber string
	SignedAt    string
	Total       string
}

var (
	invitationHTML = htmltemplate.Must(htmltemplate.New("invitation").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2>Hello {{.ClientName}},</h2>
<p>Your contract for the <strong>{{.ProjectType}}</strong> project is ready for review and signing.</p>
<ul>
<li><strong>Quote number:</strong> {{.QuoteNumber}}</li>
</ul>
<p><a href="{{.Link}}">Review &amp; sign contract</a></p>
<p style="font-size: 14px; color: #666;">No login is required. The link is valid until {{.ExpiresAt}}.</p>
<p>Best regards,<br><strong>{{.Company}}</strong></p>
</body>
</html>`))

	invitationText = texttemplate.Must(texttemplate.New("invitation").Parse(`Hello {{.ClientName}},

Your contract for the {{.ProjectType}} project is ready for review and signing.
Quote number: {{.QuoteNumber}}

Review and sign: {{.Link}}
The link is valid until {{.ExpiresAt}}.

{{.Company}}
`))

	signedHTML = htmltemplate.Must(htmltemplate.New("signed").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2>Thank you, {{.ClientName}}</h2>
<p>Your contract for the <strong>{{.ProjectType}}</strong> project (quote {{.QuoteNumber}}) was signed on {{.SignedAt}}.</p>
<p>Contract total: <strong>{{.Total}}</strong></p>
<p>We will be in touch about the next steps.</p>
<p>Best regards,<br><strong>{{.Company}}</strong></p>
</body>
</html>`))

	signedText = texttemplate.Must(texttemplate.New("signed").Parse(`Thank you, {{.ClientName}}.

Your contract for the {{.ProjectType}} project (quote {{.QuoteNumber}}) was signed on {{.SignedAt}}.
Contract total: {{.Total}}

{{.Company}}
`))
)

// Invitation renders the link mail.
func Invitation(d InvitationData) (subject, html, text string, err error) {
	subject = "Your contract is ready for review - " + d.Company
	html, text, err = render(invitationHTML, invitationText, d)
	return subject, html, text, err
}

// Signed renders the confirmation mail.
func Signed(d SignedData) (subject, html, text string, err error) {
	subject = "Contract signed - " + d.Company
	html, text, err = render(signedHTML, signedText, d)
	return subject, html, text, err
}

func render(h *htmltemplate.Template, t *texttemplate.Template, data any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
