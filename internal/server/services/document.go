package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// Document is a rendered copy of a signed contract.
type Document struct {
	Filename string
	Text     string
	HTML     string
	// URL is a presigned download link, set only when an object store is
	// configured.
	URL string
}

// Download renders the signed contract. Unsigned contracts are rejected
// with common.ErrNotYetSigned.
func (s *SigningService) Download(ctx context.Context, claims *accesstoken.Claims) (*Document, error) {
	view, err := s.ViewContract(ctx, claims)
	if err != nil {
		return nil, err
	}
	if view.Signature == nil {
		return nil, common.ErrNotYetSigned
	}

	doc, err := renderDocument(s.company, view)
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	if s.store == nil {
		return doc, nil
	}

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	key := documentKey(view.Contract.ID, view.Signature)
	if err := s.store.Put(ctx, key, []byte(doc.HTML), "text/html; charset=utf-8"); err != nil {
		return nil, common.Temporary(err)
	}
	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return nil, common.Temporary(err)
	}
	doc.URL = url

	return doc, nil
}

// documentKey is stable for a given signature, so repeated downloads
// overwrite the same object.
func documentKey(contractID int64, sig *models.Signature) string {
	name := fmt.Sprintf("contract:%d:signature:%d:%d", contractID, sig.ID, sig.SignedAt.UnixNano())
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
	return fmt.Sprintf("signed-contracts/%d/%s.html", contractID, id)
}

type documentData struct {
	Company    string
	View       *ContractView
	Signature  *models.Signature
	SignedAt   string
	Drawn      bool
	DrawnImage htmltemplate.URL
}

var (
	documentHTML = htmltemplate.Must(htmltemplate.New("document").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Company}} contract {{.View.Contract.QuoteNumber}}</title></head>
<body>
<h1>{{.Company}}</h1>
<h2>{{.View.Contract.ProjectType}} - quote {{.View.Contract.QuoteNumber}}</h2>
<p>Client: {{.View.Contract.ClientName}} &lt;{{.View.Contract.ClientEmail}}&gt;<br>
Site: {{.View.Contract.ClientAddress}}</p>
<h3>Scope of work</h3>
<p>{{.View.Contract.ScopeOfWork}}</p>
<table>
<tr><th>Description</th><th>Quantity</th><th>Unit price</th><th>Total</th></tr>
{{range .View.LineItems}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.TotalPrice}}</td></tr>
{{end}}</table>
<p><strong>Total: {{.View.Total}}</strong></p>
<h3>Payment schedule</h3>
<ol>
{{range .View.Schedule}}<li>{{.Stage}}: {{.Amount}}{{if .Description}} ({{.Description}}){{end}}</li>
{{end}}</ol>
<h3>Terms and conditions{{if .View.Terms.Version}} ({{.View.Terms.Version}}){{end}}</h3>
<pre>{{.View.Terms.Content}}</pre>
<h3>Signature</h3>
{{if .DrawnImage}}<img alt="signature" src="{{.DrawnImage}}">{{else}}<p style="font-family: cursive; font-size: 1.5em">{{.Signature.SignatureData}}</p>{{end}}
<p>Signed by {{.Signature.SignedByName}} ({{.Signature.SignedByEmail}}) on {{.SignedAt}}</p>
</body>
</html>
`))

	documentText = texttemplate.Must(texttemplate.New("document").Parse(`{{.Company}}
{{.View.Contract.ProjectType}} - quote {{.View.Contract.QuoteNumber}}

Client: {{.View.Contract.ClientName}} <{{.View.Contract.ClientEmail}}>
Site: {{.View.Contract.ClientAddress}}

Scope of work:
{{.View.Contract.ScopeOfWork}}

Line items:
{{range .View.LineItems}}  {{.Description}}: {{.Quantity}} x {{.UnitPrice}} = {{.TotalPrice}}
{{end}}
Total: {{.View.Total}}

Payment schedule:
{{range .View.Schedule}}  {{.Stage}}: {{.Amount}}
{{end}}
Terms and conditions{{if .View.Terms.Version}} ({{.View.Terms.Version}}){{end}}:
{{.View.Terms.Content}}

Signature: {{if .Drawn}}[drawn signature]{{else}}{{.Signature.SignatureData}}{{end}}
Signed by {{.Signature.SignedByName}} ({{.Signature.SignedByEmail}}) on {{.SignedAt}}
`))
)

func renderDocument(company string, view *ContractView) (*Document, error) {
	data := documentData{
		Company:   company,
		View:      view,
		Signature: view.Signature,
		SignedAt:  view.Signature.SignedAt.UTC().Format("2 January 2006 15:04 MST"),
		Drawn:     view.Signature.Kind == models.SignatureDrawn,
	}
	// Only inline images are trusted as an image source.
	if data.Drawn && strings.HasPrefix(view.Signature.SignatureData, "data:image/") {
		data.DrawnImage = htmltemplate.URL(view.Signature.SignatureData)
	}

	var h, t bytes.Buffer
	if err := documentHTML.Execute(&h, data); err != nil {
		return nil, err
	}
	if err := documentText.Execute(&t, data); err != nil {
		return nil, err
	}

	return &Document{
		Filename: fmt.Sprintf("contract-%d-signed.html", view.Contract.ID),
		Text:     t.String(),
		HTML:     h.String(),
	}, nil
}
