package script

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/scriptbridge/internal/script/api"
)

// attempt is the state of one in-flight load.
type attempt struct {
	id       uuid.UUID
	path     string
	filename string
	quiet    bool
	phase    Phase

	script     *Script
	registered bool

	// rejected holds the reason a registration was refused in a way that
	// discards the whole attempt.
	rejected error
}

// session binds an interpreter namespace to its script. While the load is
// in flight it routes registration to the attempt; once committed it
// serves the live script.
type session struct {
	ctrl    *Controller
	script  *Script
	attempt *attempt
}

var _ api.Session = (*session)(nil)

// Name returns the script name once the registration was accepted.
func (s *session) Name() string {
	if s.attempt != nil && !s.attempt.registered {
		return ""
	}
	return s.script.Name
}

// Register records the script identity for the in-flight attempt.
func (s *session) Register(r api.Registration) bool {
	c := s.ctrl
	a := s.attempt

	if a == nil || a.registered {
		c.host.Messages.Error(
			fmt.Sprintf("script %q already registered (register ignored)", s.script.Name),
			zap.String("script", s.script.Name),
			zap.NamedError("kind", ErrAlreadyRegistered),
		)
		return false
	}
	if a.rejected != nil {
		return false
	}

	if err := c.validate.Struct(r); err != nil {
		c.host.Messages.Error(
			fmt.Sprintf("invalid registration in file %q: %v", a.filename, err),
			zap.String("path", a.filename),
		)
		return false
	}

	if c.registry.Has(r.Name) {
		c.host.Messages.Error(
			fmt.Sprintf("unable to register script %q (another script already exists with this name)", r.Name),
			zap.String("script", r.Name),
			zap.String("path", a.filename),
			zap.NamedError("kind", ErrAlreadyRegistered),
		)
		a.rejected = fmt.Errorf("%w: %s", ErrAlreadyRegistered, r.Name)
		return false
	}

	sc := s.script
	sc.Name = r.Name
	sc.Author = r.Author
	sc.Version = r.Version
	sc.License = r.License
	sc.Description = r.Description
	sc.ShutdownFunc = r.ShutdownFunc
	sc.Charset = r.Charset
	a.registered = true

	if c.verbose(a.quiet) {
		c.host.Messages.Printf("registered script %q, version %s (%s)", r.Name, r.Version, r.Description)
	}
	return true
}

// SetCharset changes the declared charset.
func (s *session) SetCharset(charset string) {
	s.script.Charset = charset
}

// Track records a resource created by the script.
func (s *session) Track(ref any) {
	s.script.track(ref)
}

// Untrack forgets a resource the script freed itself.
func (s *session) Untrack(ref any) {
	s.script.untrack(ref)
}

// Enter makes a committed script current until leave is called. It does
// nothing while the load is in flight.
func (s *session) Enter() (leave func()) {
	if s.attempt != nil {
		return func() {}
	}
	reg := s.ctrl.registry
	prev := reg.Current()
	reg.SetCurrent(s.script)
	return func() {
		reg.SetCurrent(prev)
	}
}
