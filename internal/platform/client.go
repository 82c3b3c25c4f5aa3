// Package platform defines the facade over the black-box platform client.
//
// The engine never touches the wire protocol: everything it needs from the
// platform (login, challenge continuation, state serialization, thread
// listing, message broadcast) goes through the Client interface. Error
// classification is part of the contract: implementations must surface
// challenge and session-expiry conditions as the typed errors below rather
// than leaking their own error types upward.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nbadran/instadm/internal/domain"
)

var (
	// ErrChallengeRequired means login was interrupted by a verification
	// challenge. Non-fatal: the engine turns it into a state transition.
	ErrChallengeRequired = errors.New("challenge required")

	// ErrAuthExpired means the platform rejected an operation because the
	// session is no longer authenticated.
	ErrAuthExpired = errors.New("authentication expired")
)

// PlatformError is an opaque failure from the platform: network trouble,
// rate limiting, or an unexpected response.
type PlatformError struct {
	Op     string
	Detail string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform: %s: %s", e.Op, e.Detail)
}

// VerifyMethod selects the channel a challenge code is delivered on.
type VerifyMethod string

const (
	VerifyPhone VerifyMethod = "phone"
	VerifyEmail VerifyMethod = "email"
)

// Client is the capability surface of the wrapped platform client. A Client
// carries mutable device/auth/cookie state and is not safe for concurrent
// use; the engine serializes access.
type Client interface {
	// GenerateDevice derives a stable device fingerprint from seed.
	GenerateDevice(ctx context.Context, seed string) error

	// SetDeviceID binds an externally obtained device identifier.
	SetDeviceID(ctx context.Context, deviceID string) error

	// Login authenticates with credentials. Returns ErrChallengeRequired
	// when the platform demands verification.
	Login(ctx context.Context, username, password string) (*domain.Identity, error)

	// SerializeState exports client state and cookie jar as opaque blobs.
	SerializeState(ctx context.Context) (session, cookies json.RawMessage, err error)

	// DeserializeState imports previously exported state. A nil cookie blob
	// is allowed.
	DeserializeState(ctx context.Context, session, cookies json.RawMessage) error

	// CurrentIdentity fetches the logged-in account; ErrAuthExpired when
	// the session is invalid.
	CurrentIdentity(ctx context.Context) (*domain.Identity, error)

	// SetCookie installs one cookie into the client's jar.
	SetCookie(ctx context.Context, c domain.CookieEntry) error

	// ResolveUserID maps a username to its platform user ID.
	ResolveUserID(ctx context.Context, username string) (string, error)

	// ListInboxThreads returns the direct inbox.
	ListInboxThreads(ctx context.Context) ([]domain.ThreadSummary, error)

	// BroadcastText sends text to an existing thread.
	BroadcastText(ctx context.Context, threadID string, text string) error

	// BroadcastTextToUser sends text to a (possibly new) conversation with
	// the given platform user ID.
	BroadcastTextToUser(ctx context.Context, userID string, text string) error

	// MarkThreadSeen marks the most recent item in a thread as seen.
	MarkThreadSeen(ctx context.Context, threadID string) error

	// ChallengeAuto resolves the pending challenge context.
	ChallengeAuto(ctx context.Context) error

	// ChallengeSelectMethod picks the code delivery channel.
	ChallengeSelectMethod(ctx context.Context, m VerifyMethod) error

	// ChallengeSubmitCode submits the verification code.
	ChallengeSubmitCode(ctx context.Context, code string) error
}

// Factory produces a fresh Client with no residual state. The engine uses
// it on disconnect to guarantee nothing from the old session leaks into the
// next one.
type Factory func() (Client, error)
