package oauthmodel

import "errors"

var ErrUnsupportedGrant = errors.New("unsupported grant type")
