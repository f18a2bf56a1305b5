// Package digilocker verifies identity documents against DigiLocker.
package digilocker

import (
	"context"
	"net/http"
	"strings"

	"migrantconnect/services"
)

const ServiceName = "digilocker"

// SampleDocNumber is the only number the placeholder verifier accepts.
const SampleDocNumber = "1234567890"

type Result struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

type Verifier interface {
	Verify(ctx context.Context, docNumber string) (Result, error)
}

// Placeholder accepts SampleDocNumber and rejects everything else.
type Placeholder struct{}

func (Placeholder) Verify(_ context.Context, docNumber string) (Result, error) {
	if docNumber == SampleDocNumber {
		return Result{Verified: true, Message: "Document verified successfully via DigiLocker (dummy)"}, nil
	}
	return Result{Verified: false, Message: "Document not found in DigiLocker (dummy)"}, nil
}

// Client posts {"doc_number"} to <base>/verify with a bearer token and
// expects {"verified", "message"} back.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string, client *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (c *Client) Verify(ctx context.Context, docNumber string) (Result, error) {
	in := map[string]string{"doc_number": docNumber}
	var out Result
	if err := services.PostJSON(ctx, c.client, ServiceName, c.baseURL+"/verify", c.token, in, &out); err != nil {
		return Result{}, err
	}
	if out.Message == "" {
		if out.Verified {
			out.Message = "Document verified successfully via DigiLocker"
		} else {
			out.Message = "Document not found in DigiLocker"
		}
	}
	return out, nil
}

// New returns the HTTP client when baseURL is set, otherwise the placeholder.
func New(baseURL, token string, client *http.Client) Verifier {
	if strings.TrimSpace(baseURL) == "" {
		return Placeholder{}
	}
	return NewClient(baseURL, token, client)
}
