package jobs

import (
	"time"

	errs "postscope/pkg/errors"
	"postscope/pkg/models"
	"postscope/pkg/socialdata"
)

// MaxPostsLimit caps a single job
const MaxPostsLimit = 10000

// Params are the inputs of start. Start and End are inclusive; zero leaves
// that side open.
type Params struct {
	Username string          `json:"username"`
	Type     models.PostType `json:"post_type"`
	MaxCount int             `json:"max_count"`
	Start    time.Time       `json:"start_date,omitempty"`
	End      time.Time       `json:"end_date,omitempty"`
}

// Normalize cleans the username, fills defaults and validates the rest
func (p *Params) Normalize(defaultMax int) error {
	p.Username = socialdata.SanitizeUsername(p.Username)
	if p.Username == "" {
		return errs.New(errs.ErrorTypeInvalidInput, "username is required")
	}
	if !socialdata.IsValidUsername(p.Username) {
		return errs.Newf(errs.ErrorTypeInvalidInput, "invalid username %q", p.Username)
	}

	t, err := models.ParsePostType(string(p.Type))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeInvalidInput, err, err.Error())
	}
	p.Type = t

	if p.MaxCount == 0 {
		p.MaxCount = defaultMax
	}
	if p.MaxCount < 1 || p.MaxCount > MaxPostsLimit {
		return errs.Newf(errs.ErrorTypeInvalidInput, "max count must be between 1 and %d, got %d", MaxPostsLimit, p.MaxCount)
	}

	if !p.Start.IsZero() && !p.End.IsZero() && p.Start.After(p.End) {
		return errs.New(errs.ErrorTypeInvalidInput, "start date is after end date")
	}
	return nil
}

// ParseDate reads a YYYY-MM-DD day. endOfDay moves the result to the last
// second of that day so an end date is inclusive.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.ErrorTypeInvalidInput, err, "dates must look like YYYY-MM-DD")
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Second)
	}
	return d, nil
}
