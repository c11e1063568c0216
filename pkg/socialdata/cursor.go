package socialdata

import (
	"encoding/base64"
	"encoding/json"

	errs "postscope/pkg/errors"
	"postscope/pkg/models"
)

// mergedCursor tracks the two upstream streams behind a "both" page. Posts
// fetched but not yet safe to release travel with it, so the client keeps
// no state between calls.
type mergedCursor struct {
	Posts       string        `json:"p,omitempty"`
	Replies     string        `json:"r,omitempty"`
	PostsDone   bool          `json:"pd,omitempty"`
	RepliesDone bool          `json:"rd,omitempty"`
	PendingPost []models.Post `json:"bp,omitempty"`
	PendingRepl []models.Post `json:"br,omitempty"`
}

func (c mergedCursor) exhausted() bool {
	return c.PostsDone && c.RepliesDone && len(c.PendingPost) == 0 && len(c.PendingRepl) == 0
}

// encode returns an opaque token, or "" once both streams are drained
func (c mergedCursor) encode() (string, error) {
	if c.exhausted() {
		return "", nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknown, err, "encoding cursor")
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeMergedCursor(token string) (mergedCursor, error) {
	var c mergedCursor
	if token == "" {
		return c, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, errs.Wrap(errs.ErrorTypeInvalidInput, err, "malformed cursor")
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return mergedCursor{}, errs.Wrap(errs.ErrorTypeInvalidInput, err, "malformed cursor")
	}
	return c, nil
}
