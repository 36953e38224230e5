package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

const (
	activationCodeMin   = 1000
	activationCodeRange = 9000 // [1000, 9999]
	activationAudience  = "activation"
)

var nowFunc = time.Now // mockable

// ActivationClaims are carried by the activation token handed back to a registrant.
// The code itself is never stored: only its keyed hash, so the bearer cannot read it from the token.
type ActivationClaims struct {
	jwt.StandardClaims
	User     PendingUser `json:"user"`
	CodeHash string      `json:"code_hash"`
}

// newActivationCode draws a uniformly distributed 4 digits code.
func newActivationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(activationCodeRange))
	if err != nil {
		return "", errors.Wrap(err, "drawing activation code")
	}
	return strconv.FormatInt(n.Int64()+activationCodeMin, 10), nil
}

func (svc *Service) hashActivationCode(email, code string) string {
	mac := hmac.New(sha256.New, []byte(svc.conf.ActivationSecret))
	_, _ = mac.Write([]byte(email + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

// createActivationToken returns a signed token embedding pu and a fresh activation code.
func (svc *Service) createActivationToken(pu PendingUser) (token, code string, err error) {
	code, err = newActivationCode()
	if err != nil {
		return "", "", err
	}

	now := nowFunc()
	claims := &ActivationClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    svc.conf.AppName,
			Audience:  activationAudience,
			ExpiresAt: now.Add(svc.conf.ActivationTimeoutDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		User:     pu,
		CodeHash: svc.hashActivationCode(pu.Email, code),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(svc.conf.ActivationSecret))
	if err != nil {
		return "", "", errors.Wrap(err, "signing activation token")
	}
	return token, code, nil
}

// parseActivationToken checks the token signature, its expiry and the code, then returns the pending user.
func (svc *Service) parseActivationToken(token, code string) (PendingUser, error) {
	claims := new(ActivationClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(svc.conf.ActivationSecret), nil
	})
	if err != nil || !parsed.Valid || !claims.VerifyAudience(activationAudience, true) {
		return PendingUser{}, ErrInvalidActivationToken
	}

	want := svc.hashActivationCode(claims.User.Email, code)
	if !hmac.Equal([]byte(want), []byte(claims.CodeHash)) {
		return PendingUser{}, ErrInvalidActivationCode
	}
	return claims.User, nil
}
