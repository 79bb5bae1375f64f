package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jrsteele09/go-tumblr-auth/oauth2"
)

// printToken writes the access token, or the whole response as JSON.
func printToken(w io.Writer, tok *oauth2.TokenResponse, asJSON bool) error {
	if asJSON {
		return printJSON(w, tok)
	}
	_, err := fmt.Fprintln(w, tok.AccessToken)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
