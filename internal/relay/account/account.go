// Package account derives local EGA accounts from identity-provider claims.
package account

import (
	"errors"
	"strconv"
)

// DefaultGecos is used when the provider supplies no gecos claim.
const DefaultGecos = "Local EGA User"

// ErrInvalidSubject indicates a subject claim that is not a non-negative
// integer. The exchange fails outright instead of minting a sentinel uid.
var ErrInvalidSubject = errors.New("subject claim is not a non-negative integer")

// User is the local account derived from provider claims. The uid is a pure
// function of the subject: re-provisioning the same subject always yields the
// same uid.
type User struct {
	UID      int64
	Username string
	Gecos    string
}

// FromClaims derives a local user from userinfo claims. The uid is the
// configured shift plus the integer subject.
func FromClaims(claims map[string]string, uidShift int64) (User, error) {
	sub, err := strconv.ParseInt(claims["sub"], 10, 64)
	if err != nil || sub < 0 {
		return User{}, ErrInvalidSubject
	}

	gecos := claims["gecos"]
	if gecos == "" {
		gecos = DefaultGecos
	}

	return User{
		UID:      uidShift + sub,
		Username: claims["nickname"],
		Gecos:    gecos,
	}, nil
}
