// Package gateway routes client actions to the signing service. Every
// action is gated by the same token verifier.
package gateway

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/services"
)

// Client actions.
const (
	ActionView        = "view"
	ActionAcceptTerms = "accept-terms"
	ActionSign        = "sign"
	ActionDownload    = "download"
)

// Signer is the part of services.SigningService the gateway drives.
type Signer interface {
	ViewContract(ctx context.Context, claims *accesstoken.Claims) (*services.ContractView, error)
	AcceptTerms(ctx context.Context, claims *accesstoken.Claims, meta services.ClientMeta) (*models.TermsAcceptance, error)
	Sign(ctx context.Context, claims *accesstoken.Claims, req services.SignRequest, meta services.ClientMeta) (*models.Signature, error)
	Download(ctx context.Context, claims *accesstoken.Claims) (*services.Document, error)
}

// Request is one decoded client call.
type Request struct {
	Token         string
	Action        string
	SignatureData string
	SignatureKind string
	AgreesToTerms bool
	SignerName    string
	Meta          services.ClientMeta
}

type Gateway struct {
	verifier accesstoken.TokenVerifier
	signer   Signer
	log      logging.Logger
}

func New(verifier accesstoken.TokenVerifier, signer Signer, log logging.Logger) *Gateway {
	return &Gateway{verifier: verifier, signer: signer, log: log}
}

// Dispatch verifies the token and runs the action. An empty action means
// view. Errors belong to the common taxonomy.
func (g *Gateway) Dispatch(ctx context.Context, req Request) (*Response, error) {
	claims, err := g.verifier.Verify(ctx, req.Token)
	if err != nil {
		if !errors.Is(err, common.ErrInvalidToken) {
			g.log.Error(ctx, "token verification failed", "error", err)
		}
		return nil, err
	}

	switch req.Action {
	case "", ActionView:
		view, err := g.signer.ViewContract(ctx, claims)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Contract: contractPayload(view)}, nil

	case ActionAcceptTerms:
		acc, err := g.signer.AcceptTerms(ctx, claims, req.Meta)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Message: "Terms accepted", AcceptedAt: &acc.AcceptedAt}, nil

	case ActionSign:
		sig, err := g.signer.Sign(ctx, claims, services.SignRequest{
			SignatureData: req.SignatureData,
			Kind:          req.SignatureKind,
			AgreesToTerms: req.AgreesToTerms,
			SignerName:    req.SignerName,
		}, req.Meta)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Message: "Contract signed successfully", Signature: signaturePayload(sig)}, nil

	case ActionDownload:
		doc, err := g.signer.Download(ctx, claims)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Document: &DocumentPayload{
			Filename: doc.Filename,
			Text:     doc.Text,
			HTML:     doc.HTML,
			URL:      doc.URL,
		}}, nil

	default:
		return nil, common.ErrInvalidAction
	}
}

// Message is the client-safe text for err. Storage details never leak.
func Message(err error) string {
	var te *common.TransitionError
	switch {
	case errors.As(err, &te):
		return te.Error()
	case common.Kind(err) == common.KindTemporaryFailure:
		return common.ErrTemporaryFailure.Error()
	}
	for _, sentinel := range []error{
		common.ErrInvalidToken,
		common.ErrTermsNotAccepted,
		common.ErrTermsNotAgreed,
		common.ErrEmptySignature,
		common.ErrAlreadySigned,
		common.ErrNotYetSigned,
		common.ErrInvalidAction,
		common.ErrorNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return common.ErrTemporaryFailure.Error()
}
