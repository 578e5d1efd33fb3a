package session

import (
	"github.com/loriensleafs/brain/internal/applog"
	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/jsonutil"
)

// Codec signs and verifies SessionState under a process-wide secret, read
// once at startup; a missing secret fails the whole subsystem to construct
// (enforced by the caller, per config.ErrNoSecret).
type Codec struct {
	secret []byte
}

// NewCodec constructs a Codec. secret must be non-empty.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, brainerr.New(brainerr.Config, "session signing secret is empty", nil)
	}
	return &Codec{secret: secret}, nil
}

// Sign computes the HMAC-SHA256 over the canonical JSON of s with the
// signature field omitted, and returns a copy of s with Signature set.
func (c *Codec) Sign(s SessionState) (SessionState, error) {
	payload, err := jsonutil.Canonical(s.unsigned())
	if err != nil {
		return SessionState{}, err
	}
	return s.withSignature(jsonutil.Sign(c.secret, payload)), nil
}

// Verify recomputes the HMAC over s (with its stored signature omitted)
// and compares it constant-time against s.Signature.
func (c *Codec) Verify(s SessionState) error {
	payload, err := jsonutil.Canonical(s.unsigned())
	if err != nil {
		return err
	}
	if !jsonutil.Verify(c.secret, payload, s.Signature) {
		applog.Warn("session", "session signature mismatch", map[string]any{"session_id": s.SessionID})
		return brainerr.New(brainerr.SignatureInvalid, "session signature mismatch", map[string]any{
			"session_id": s.SessionID,
		})
	}
	return nil
}

// Marshal returns the canonical JSON persistence body of a signed state.
func (c *Codec) Marshal(s SessionState) ([]byte, error) {
	return jsonutil.Canonical(s)
}
