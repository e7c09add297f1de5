// Package httpapi exposes the client gateway over HTTP with gin.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/gateway"
	"github.com/dmitrijs2005/contractsign/internal/server/services"
)

// Dispatcher runs one client action.
type Dispatcher interface {
	Dispatch(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// Pinger reports backend health. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	gw     Dispatcher
	db     Pinger
	log    logging.Logger
	health time.Duration
}

func NewHandler(gw Dispatcher, db Pinger, log logging.Logger) *Handler {
	return &Handler{gw: gw, db: db, log: log, health: 2 * time.Second}
}

// flexBool accepts true, "true", "1", "on" and 1.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		*b = flexBool(x)
	case float64:
		*b = x != 0
	case string:
		*b = flexBool(parseBool(x))
	case nil:
		*b = false
	default:
		return errors.New("agreesToTerms: unsupported value")
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "on" || s == "yes" {
		return true
	}
	v, err := strconv.ParseBool(s)
	return err == nil && v
}

type accessBody struct {
	Token         string   `json:"token"`
	Action        string   `json:"action"`
	SignatureData string   `json:"signatureData"`
	SignatureKind string   `json:"signatureKind"`
	AgreesToTerms flexBool `json:"agreesToTerms"`
	SignerName    string   `json:"signerName"`
}

// decode reads the request from the query string and, for POST, from a
// JSON or form body. Body fields win over query parameters.
func decode(c *gin.Context) (gateway.Request, error) {
	req := gateway.Request{
		Token:  c.Query(common.TokenParamName),
		Action: c.Query("action"),
		Meta: services.ClientMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	}
	if c.Request.Method != http.MethodPost {
		return req, nil
	}

	var body accessBody
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				return req, err
			}
		}
	} else {
		body = accessBody{
			Token:         c.PostForm(common.TokenParamName),
			Action:        c.PostForm("action"),
			SignatureData: c.PostForm("signatureData"),
			SignatureKind: c.PostForm("signatureKind"),
			AgreesToTerms: flexBool(parseBool(c.PostForm("agreesToTerms"))),
			SignerName:    c.PostForm("signerName"),
		}
	}

	if body.Token != "" {
		req.Token = body.Token
	}
	if body.Action != "" {
		req.Action = body.Action
	}
	req.SignatureData = body.SignatureData
	req.SignatureKind = body.SignatureKind
	req.AgreesToTerms = bool(body.AgreesToTerms)
	req.SignerName = body.SignerName
	return req, nil
}

// Access serves GET and POST /api/access.
func (h *Handler) Access(c *gin.Context) {
	req, err := decode(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gateway.ErrorResponse{
			Error:   common.KindInvalidAction,
			Message: "malformed request body",
		})
		return
	}
	// state-changing actions are POST only
	if c.Request.Method != http.MethodPost && !readOnly(req.Action) {
		h.fail(c, common.ErrInvalidAction)
		return
	}

	resp, err := h.gw.Dispatch(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func readOnly(action string) bool {
	switch action {
	case "", gateway.ActionView, gateway.ActionDownload:
		return true
	}
	return false
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := common.Kind(err)
	if kind == common.KindTemporaryFailure {
		h.log.Error(c.Request.Context(), "access request failed", "error", err)
	}
	c.JSON(statusFor(kind), gateway.ErrorResponse{
		Error:   kind,
		Message: gateway.Message(err),
	})
}

func statusFor(kind string) int {
	switch kind {
	case common.KindInvalid:
		return http.StatusUnauthorized
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindInvalidAction, common.KindTermsNotAgreed, common.KindEmptySignature:
		return http.StatusBadRequest
	case common.KindTermsNotAccepted, common.KindAlreadySigned, common.KindNotYetSigned, common.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// Health pings the database.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.health)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn(ctx, "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
