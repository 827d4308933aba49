/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inbox

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/store/memstore"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
	"github.com/fedipress/fedipress/pkg/metrics"
)

type mockActivityHandler struct {
	mutex   sync.Mutex
	err     error
	handles []string
}

func (m *mockActivityHandler) HandleActivity(handle string, _ *vocab.ActivityType) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return m.err
	}

	m.handles = append(m.handles, handle)

	return nil
}

func (m *mockActivityHandler) handled() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]string(nil), m.handles...)
}

type mockVerifier struct {
	actorIRI *url.URL
	err      error
}

func (m *mockVerifier) VerifyRequest(_ *http.Request) (*url.URL, error) {
	if m.err != nil {
		return nil, m.err
	}

	return m.actorIRI, nil
}

func newTestInbox(t *testing.T, handler *mockActivityHandler, verifier *mockVerifier) (*Inbox, *memstore.Store) {
	t.Helper()

	cfg, err := config.New("https://example.com")
	require.NoError(t, err)

	s := memstore.New("test")

	return New(cfg, s, handler, verifier, metrics.NewNoOp()), s
}

func newTestActivity(t *testing.T) *vocab.ActivityType {
	t.Helper()

	return vocab.NewFollowActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/@alice"))),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/follow-1")),
		vocab.WithActor(vocab.MustParseURL("https://remote.example/users/bob")),
		vocab.WithTo(vocab.MustParseURL("https://example.com/@alice")),
	)
}

func newRequest(t *testing.T, activity *vocab.ActivityType) *http.Request {
	t.Helper()

	body, err := vocab.Marshal(activity)
	require.NoError(t, err)

	return httptest.NewRequest(http.MethodPost, "https://example.com/@alice/inbox", bytes.NewReader(body))
}

func TestInbox_HandleRequest(t *testing.T) {
	handler := &mockActivityHandler{}
	verifier := &mockVerifier{actorIRI: vocab.MustParseURL("https://remote.example/users/bob")}

	ib, s := newTestInbox(t, handler, verifier)

	activity := newTestActivity(t)

	require.NoError(t, ib.HandleRequest("alice", newRequest(t, activity)))
	require.Equal(t, []string{"alice"}, handler.handled())

	// The activity is archived in the inbox.
	stored, err := s.GetActivity(store.Inbox, activity.ID().URL())
	require.NoError(t, err)
	require.Equal(t, activity.ID().String(), stored.ID().String())

	// Redelivery of the same activity is ignored.
	require.NoError(t, ib.HandleRequest("alice", newRequest(t, activity)))
	require.Len(t, handler.handled(), 1)
}

func TestInbox_HandleSharedRequest(t *testing.T) {
	handler := &mockActivityHandler{}
	verifier := &mockVerifier{actorIRI: vocab.MustParseURL("https://remote.example/users/bob")}

	ib, _ := newTestInbox(t, handler, verifier)

	// Addressed to two local actors and one remote actor.
	activity := vocab.NewCreateActivity(
		vocab.NewObjectProperty(vocab.WithObject(vocab.NewObject(
			vocab.WithID(vocab.MustParseURL("https://remote.example/notes/1")),
			vocab.WithType(vocab.TypeNote),
		))),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/create-1")),
		vocab.WithActor(vocab.MustParseURL("https://remote.example/users/bob")),
		vocab.WithTo(vocab.MustParseURL("https://example.com/@alice")),
		vocab.WithCC(vocab.MustParseURL("https://example.com/@dave"),
			vocab.MustParseURL("https://other.example/users/carol")),
	)

	require.NoError(t, ib.HandleSharedRequest(newRequest(t, activity)))
	require.Equal(t, []string{"alice", "dave"}, handler.handled())
}

func TestInbox_HandleSharedRequestNoLocalRecipients(t *testing.T) {
	handler := &mockActivityHandler{}
	verifier := &mockVerifier{actorIRI: vocab.MustParseURL("https://remote.example/users/bob")}

	ib, _ := newTestInbox(t, handler, verifier)

	activity := vocab.NewLikeActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://other.example/notes/1"))),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/like-1")),
		vocab.WithActor(vocab.MustParseURL("https://remote.example/users/bob")),
		vocab.WithTo(vocab.MustParseURL("https://other.example/users/carol")),
	)

	err := ib.HandleSharedRequest(newRequest(t, activity))
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindBadRequest))
}

func TestInbox_HandleRequestInvalidSignature(t *testing.T) {
	handler := &mockActivityHandler{}
	verifier := &mockVerifier{err: fperrors.NewSignatureVerificationf("invalid signature")}

	ib, _ := newTestInbox(t, handler, verifier)

	err := ib.HandleRequest("alice", newRequest(t, newTestActivity(t)))
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindSignatureVerification))
	require.Empty(t, handler.handled())
}

func TestInbox_HandleRequestActorMismatch(t *testing.T) {
	handler := &mockActivityHandler{}
	verifier := &mockVerifier{actorIRI: vocab.MustParseURL("https://remote.example/users/mallory")}

	ib, _ := newTestInbox(t, handler, verifier)

	err := ib.HandleRequest("alice", newRequest(t, newTestActivity(t)))
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindSignatureVerification))
	require.Empty(t, handler.handled())
}

func TestInbox_HandleRequestMalformed(t *testing.T) {
	handler := &mockActivityHandler{}

	ib, _ := newTestInbox(t, handler, &mockVerifier{
		actorIRI: vocab.MustParseURL("https://remote.example/users/bob"),
	})

	req := httptest.NewRequest(http.MethodPost, "https://example.com/@alice/inbox",
		bytes.NewReader([]byte("not json")))

	err := ib.HandleRequest("alice", req)
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindBadRequest))

	// An activity missing required envelope fields is also a bad request.
	invalid := vocab.NewFollowActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/@alice"))),
		vocab.WithActor(vocab.MustParseURL("https://remote.example/users/bob")),
	)

	err = ib.HandleRequest("alice", newRequest(t, invalid))
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindBadRequest))
	require.Empty(t, handler.handled())
}

func TestInbox_VerificationDisabled(t *testing.T) {
	handler := &mockActivityHandler{}

	cfg, err := config.New("https://example.com")
	require.NoError(t, err)

	cfg.SignatureVerificationEnabled = false

	ib := New(cfg, memstore.New("test"), handler,
		&mockVerifier{err: fperrors.NewSignatureVerificationf("should not be called")}, metrics.NewNoOp())

	require.NoError(t, ib.HandleRequest("alice", newRequest(t, newTestActivity(t))))
	require.Equal(t, []string{"alice"}, handler.handled())
}
