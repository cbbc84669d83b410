package social

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

// ProviderError describes a failed call to a provider endpoint.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	scope := strings.TrimSpace(e.Provider + " " + e.Operation)
	if scope == "" {
		scope = "provider"
	}

	switch {
	case e.Description != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s failed: status %d", scope, e.Status)
	}
	return scope + " failed"
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Metadata returns the populated fields for structured logging
func (e *ProviderError) Metadata() map[string]any {
	meta := map[string]any{}
	if e.Provider != "" {
		meta["provider"] = e.Provider
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}
	return meta
}

func exchangeError(provider string, err error) error {
	perr := &ProviderError{Provider: provider, Operation: "exchange", Err: err}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		perr.Code = rerr.ErrorCode
		perr.Description = rerr.ErrorDescription
		if rerr.Response != nil {
			perr.Status = rerr.Response.StatusCode
		}
	}
	return perr
}

// parseErrorBody understands the OAuth2 error shape and the
// {"error":{"message":..}} and {"message":..} API shapes.
func parseErrorBody(body []byte) *ProviderError {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return &ProviderError{Description: strings.TrimSpace(string(body))}
	}

	perr := &ProviderError{}
	switch v := payload["error"].(type) {
	case string:
		perr.Code = v
		perr.Description, _ = payload["error_description"].(string)
	case map[string]any:
		perr.Code, _ = v["status"].(string)
		perr.Description, _ = v["message"].(string)
	}
	if perr.Description == "" {
		perr.Description, _ = payload["message"].(string)
	}
	return perr
}

// wrapProviderError attaches provider details to a copy of base.
func wrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	meta := map[string]any{
		"provider":  provider,
		"operation": operation,
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	clone := base.Clone()
	if err != nil {
		clone.Source = err
	}
	clone.WithMetadata(meta)
	return clone
}
