package user

import "time"

// SetNow replaces the clock used by the activation tokens and returns a func restoring it.
func SetNow(now func() time.Time) (restore func()) {
	orig := nowFunc
	nowFunc = now
	return func() { nowFunc = orig }
}
