package kratos

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	kratos "github.com/ory/kratos-client-go"

	"github.com/dmitrymomot/storytime/svc/auth"
)

var (
	ErrInvalidURL      = errors.New("kratos: invalid public url")
	ErrMissingRedirect = errors.New("kratos: oidc flow returned no redirect")
	errSessionMissing  = &auth.ProviderError{Status: http.StatusUnauthorized, Code: "session_inactive", Message: "No active session was found"}
)

// errorBody covers both shapes Kratos answers with: a generic error
// envelope and a self-service flow whose UI carries validation messages.
type errorBody struct {
	Error struct {
		ID      string `json:"id"`
		Code    int    `json:"code"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
	RedirectBrowserTo string `json:"redirect_browser_to"`
	UI                struct {
		Messages []uiMessage `json:"messages"`
		Nodes    []struct {
			Messages []uiMessage `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
}

type uiMessage struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

func parseBody(err error) (errorBody, bool) {
	var body errorBody
	var apiErr *kratos.GenericOpenAPIError
	if !errors.As(err, &apiErr) {
		return body, false
	}
	if json.Unmarshal(apiErr.Body(), &body) != nil {
		return body, false
	}
	return body, true
}

func (b errorBody) message() string {
	var texts []string
	for _, m := range b.UI.Messages {
		if m.Type == "error" {
			texts = append(texts, m.Text)
		}
	}
	for _, n := range b.UI.Nodes {
		for _, m := range n.Messages {
			if m.Type == "error" {
				texts = append(texts, m.Text)
			}
		}
	}
	if len(texts) > 0 {
		return strings.Join(texts, " ")
	}
	if b.Error.Reason != "" {
		return b.Error.Reason
	}
	return b.Error.Message
}

// providerError converts a client failure. Transport failures (no response)
// keep the original error so callers can recognize them as network errors.
// Form flows report validation failures as 400; remapped is used instead so
// they read as invalid input rather than bad credentials.
func providerError(op string, err error, resp *http.Response, remapped int) error {
	if resp == nil {
		return fmt.Errorf("kratos %s: %w", op, err)
	}

	status := resp.StatusCode
	if status == http.StatusBadRequest && remapped != 0 {
		status = remapped
	}

	pe := &auth.ProviderError{Status: status, Err: err}
	if body, ok := parseBody(err); ok {
		pe.Code = body.Error.ID
		pe.Message = body.message()
	}
	return pe
}
