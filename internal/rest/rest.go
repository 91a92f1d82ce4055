// Package rest holds the persistable types of REST service testing:
// captured requests and responses and the credentials used to obtain them.
//
// Every type registers itself on model.DefaultRegistry under "rest.<Type>"
// so documents naming it can be decoded without further setup.
package rest

import (
	"github.com/roach88/persistor/internal/model"
)

// Request is an outgoing HTTP request.
type Request struct {
	model.Base
	Method  string            `persist:"Method"`
	URL     string            `persist:"URL"`
	Headers map[string]string `persist:"Headers"`
	Body    string            `persist:"Body"`
}

// Response is a received HTTP response together with the request that
// produced it.
type Response struct {
	model.Base
	StatusCode string            `persist:"StatusCode"`
	StatusLine string            `persist:"StatusLine"`
	Headers    map[string]string `persist:"Headers"`
	Body       string            `persist:"Body"`
	Request    *Request          `persist:"Request"`
}

// SimpleAuth is basic user name and password authentication.
type SimpleAuth struct {
	model.Base
	UserName string `persist:"UserName"`
	Password string `persist:"Password"`
}

// Content is the token material returned by an authorization server.
type Content struct {
	model.Base
	AccessToken  string `persist:"AccessToken"`
	RefreshToken string `persist:"RefreshToken"`
	TokenType    string `persist:"TokenType"`
	ExpiresIn    int    `persist:"ExpiresIn"`
}

// AuthorizationServer locates the OAuth2 endpoints.
type AuthorizationServer struct {
	model.Base
	RootURL           string `persist:"RootURL"`
	BaseServiceName   string `persist:"BaseServiceName"`
	AuthCodeResource  string `persist:"AuthCodeResource"`
	AuthTokenResource string `persist:"AuthTokenResource"`
}

// OAuth2 combines client credentials, the authorization server and the
// tokens obtained from it.
type OAuth2 struct {
	model.Base
	SimpleAuth          *SimpleAuth          `persist:"SimpleAuth"`
	Content             *Content             `persist:"Content"`
	AuthorizationServer *AuthorizationServer `persist:"AuthorizationServer"`
	Scopes              []string             `persist:"Scopes"`
}

// SSOAuth authenticates through a single sign-on endpoint.
type SSOAuth struct {
	model.Base
	SSOAuthenticationURL string   `persist:"SSOAuthenticationURL"`
	Parameters           []string `persist:"Parameters"`
	RequiredCookies      string   `persist:"RequiredCookies"`
}

// Register adds every type of this package to r.
func Register(r *model.Registry) error {
	types := []struct {
		name    string
		factory model.Factory
	}{
		{"rest.Request", func() model.Persistable { return &Request{} }},
		{"rest.Response", func() model.Persistable { return &Response{} }},
		{"rest.SimpleAuth", func() model.Persistable { return &SimpleAuth{} }},
		{"rest.Content", func() model.Persistable { return &Content{} }},
		{"rest.AuthorizationServer", func() model.Persistable { return &AuthorizationServer{} }},
		{"rest.OAuth2", func() model.Persistable { return &OAuth2{} }},
		{"rest.SSOAuth", func() model.Persistable { return &SSOAuth{} }},
	}
	for _, t := range types {
		if err := r.RegisterName(t.name, t.factory); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	if err := Register(model.DefaultRegistry()); err != nil {
		panic(err)
	}
}
