package gateway

import (
	"time"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/services"
)

// Response is the success body. Only the fields of the executed action
// are set.
type Response struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Contract   *ContractPayload  `json:"contract,omitempty"`
	AcceptedAt *time.Time        `json:"acceptedAt,omitempty"`
	Signature  *SignaturePayload `json:"signature,omitempty"`
	Document   *DocumentPayload  `json:"document,omitempty"`
}

// ErrorResponse is the failure body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ContractPayload struct {
	ID                 int64              `json:"id"`
	ClientName         string             `json:"clientName"`
	ClientEmail        string             `json:"clientEmail"`
	ClientAddress      string             `json:"clientAddress"`
	ClientPhone        string             `json:"clientPhone"`
	ProjectType        string             `json:"projectType"`
	ScopeOfWork        string             `json:"scopeOfWork"`
	InstallationDate   string             `json:"installationDate,omitempty"`
	QuoteNumber        string             `json:"quoteNumber"`
	Status             string             `json:"status"`
	TotalAmount        models.Money       `json:"totalAmount"`
	LineItems          []*models.LineItem `json:"lineItems"`
	PaymentSchedule    []models.Stage     `json:"paymentSchedule"`
	ScheduleOverridden bool               `json:"scheduleOverridden"`
	Terms              TermsPayload       `json:"terms"`
	TermsAccepted      bool               `json:"termsAccepted"`
	TermsAcceptedAt    *time.Time         `json:"termsAcceptedAt,omitempty"`
	Signed             bool               `json:"signed"`
	SignedAt           *time.Time         `json:"signedAt,omitempty"`
	SignedBy           string             `json:"signedBy,omitempty"`
}

type TermsPayload struct {
	ID          *int64 `json:"id,omitempty"`
	Version     string `json:"version,omitempty"`
	Content     string `json:"content"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// SignaturePayload omits the signature image itself.
type SignaturePayload struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	SignedByName string    `json:"signedByName"`
	SignedAt     time.Time `json:"signedAt"`
}

type DocumentPayload struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	URL      string `json:"url,omitempty"`
}

func contractPayload(v *services.ContractView) *ContractPayload {
	c := v.Contract
	p := &ContractPayload{
		ID:                 c.ID,
		ClientName:         c.ClientName,
		ClientEmail:        c.ClientEmail,
		ClientAddress:      c.ClientAddress,
		ClientPhone:        c.ClientPhone,
		ProjectType:        c.ProjectType,
		ScopeOfWork:        c.ScopeOfWork,
		QuoteNumber:        c.QuoteNumber,
		Status:             string(c.Status),
		TotalAmount:        v.Total,
		LineItems:          v.LineItems,
		PaymentSchedule:    v.Schedule,
		ScheduleOverridden: v.ScheduleOverridden,
		Terms: TermsPayload{
			ID:          v.Terms.ID,
			Version:     v.Terms.Version,
			Content:     v.Terms.Content,
			Placeholder: v.Terms.Placeholder,
		},
	}
	if c.InstallationDate != nil {
		p.InstallationDate = c.InstallationDate.Format(time.DateOnly)
	}
	if v.Acceptance != nil {
		p.TermsAccepted = true
		p.TermsAcceptedAt = &v.Acceptance.AcceptedAt
	}
	if v.Signature != nil {
		p.Signed = true
		p.SignedAt = &v.Signature.SignedAt
		p.SignedBy = v.Signature.SignedByName
	}
	if p.LineItems == nil {
		p.LineItems = []*models.LineItem{}
	}
	return p
}

func signaturePayload(s *models.Signature) *SignaturePayload {
	return &SignaturePayload{
		ID:           s.ID,
		Kind:         string(s.Kind),
		SignedByName: s.SignedByName,
		SignedAt:     s.SignedAt,
	}
}
