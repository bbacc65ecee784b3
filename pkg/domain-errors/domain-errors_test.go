package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the error primitives used at every boundary of the
// coordination layer. Invariants like "wrapping preserves the original code"
// and "errors.Is matches by code" are what the pipeline's retry and sign-out
// decisions hang off, so they get direct coverage.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNoActiveSession, Message: "sign in first"}
		s.Equal("sign in first", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeSessionExpired}
		s.Equal("session_expired", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeTransport, "request failed")
	s.ErrorIs(err, cause)
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	a := New(CodeConfiguration, "no provider")
	b := New(CodeConfiguration, "different message")
	s.ErrorIs(a, b)

	c := New(CodeTransport, "no provider")
	s.NotErrorIs(a, c)
}

func (s *DomainErrorsSuite) TestWrapPreservesExistingCode() {
	inner := New(CodeSessionExpired, "refresh failed")
	outer := Wrap(fmt.Errorf("retry aborted: %w", inner), CodeInternal, "retry aborted")

	s.True(HasCode(outer, CodeSessionExpired))
	s.False(HasCode(outer, CodeInternal))
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.True(HasCode(New(CodeAPI, "boom"), CodeAPI))
	s.False(HasCode(errors.New("plain"), CodeAPI))
	s.False(HasCode(nil, CodeAPI))
}
