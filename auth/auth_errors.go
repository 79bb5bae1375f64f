package auth

import "errors"

var ErrNoRefreshToken = errors.New("refresh token is required")
