/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbox

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/client/transport"
	"github.com/fedipress/fedipress/pkg/activitypub/store/memstore"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/metrics"
	"github.com/fedipress/fedipress/pkg/pubsub/mempubsub"
)

type mockTransport struct {
	mutex      sync.Mutex
	statusCode int
	err        error
	posts      []string
}

func (m *mockTransport) Post(_ context.Context, req *transport.Request, _ []byte) (*http.Response, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	m.posts = append(m.posts, req.URL.String())

	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (m *mockTransport) postedTo() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]string(nil), m.posts...)
}

type mockResolver struct {
	inbox *url.URL
	err   error
}

func (m *mockResolver) GetActor(actorIRI *url.URL) (*vocab.ActorType, error) {
	if m.err != nil {
		return nil, m.err
	}

	return vocab.NewPerson(actorIRI, vocab.WithInbox(m.inbox)), nil
}

func (m *mockResolver) ResolveInbox(actor *vocab.ActorType, _ bool) (*url.URL, error) {
	return actor.Inbox(), nil
}

func newTestActivity(t *testing.T) *vocab.ActivityType {
	t.Helper()

	return vocab.NewCreateActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/ap/content/blog/post-1"))),
		vocab.WithID(vocab.MustParseURL("https://example.com/ap/activities/create/post-1-1000")),
		vocab.WithActor(vocab.MustParseURL("https://example.com/ap/users/alice")),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
	)
}

func newTestOutbox(t *testing.T, tp *mockTransport, resolver *mockResolver) (*Outbox, *memstore.Store) {
	t.Helper()

	s := memstore.New("test")

	ps := mempubsub.New(mempubsub.DefaultConfig())
	t.Cleanup(func() { require.NoError(t, ps.Close()) })

	ob, err := New(&Config{
		MaxRetries:     3,
		RequestTimeout: time.Second,
		LogDir:         t.TempDir(),
	}, s, ps, tp, resolver, metrics.NewNoOp())
	require.NoError(t, err)

	ob.Start()
	t.Cleanup(ob.Stop)

	return ob, s
}

func TestOutbox_DeliverSuccess(t *testing.T) {
	tp := &mockTransport{statusCode: http.StatusAccepted}
	resolver := &mockResolver{inbox: vocab.MustParseURL("https://remote.example/users/bob/inbox")}

	ob, s := newTestOutbox(t, tp, resolver)

	taskID, err := ob.Deliver(newTestActivity(t), []string{"https://remote.example/users/bob"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		return len(tp.postedTo()) == 1
	}, 2*time.Second, 50*time.Millisecond)

	require.Equal(t, "https://remote.example/users/bob/inbox", tp.postedTo()[0])

	// Delivered tasks are removed from the queue.
	require.Eventually(t, func() bool {
		_, err := s.GetDeliveryTask(taskID)

		return errors.Is(err, store.ErrNotFound)
	}, 2*time.Second, 50*time.Millisecond)
}

func TestOutbox_DeliverNoRecipients(t *testing.T) {
	ob, _ := newTestOutbox(t, &mockTransport{statusCode: http.StatusOK}, &mockResolver{})

	taskID, err := ob.Deliver(newTestActivity(t), nil, "")
	require.NoError(t, err)
	require.Empty(t, taskID)
}

func TestOutbox_DeliverInvalidActivity(t *testing.T) {
	ob, _ := newTestOutbox(t, &mockTransport{statusCode: http.StatusOK}, &mockResolver{})

	activity := vocab.NewCreateActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/obj"))),
		vocab.WithActor(vocab.MustParseURL("https://example.com/ap/users/alice")),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
	)

	_, err := ob.Deliver(activity, []string{"https://remote.example/users/bob"}, "")
	require.Error(t, err)
}

func TestOutbox_RetryAndFail(t *testing.T) {
	tp := &mockTransport{statusCode: http.StatusInternalServerError}
	resolver := &mockResolver{inbox: vocab.MustParseURL("https://remote.example/users/bob/inbox")}

	ob, s := newTestOutbox(t, tp, resolver)

	taskID, err := ob.Deliver(newTestActivity(t), []string{"https://remote.example/users/bob"}, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		task, err := s.GetDeliveryTask(taskID)

		return err == nil && task.Status == store.TaskPending && task.RetryCount == 1
	}, 2*time.Second, 50*time.Millisecond)

	task, err := s.GetDeliveryTask(taskID)
	require.NoError(t, err)
	require.True(t, task.NextRetryAt.After(task.CreatedAt))

	// Force the remaining retries to be due immediately.
	for i := 0; i < 3; i++ {
		task, err := s.GetDeliveryTask(taskID)
		require.NoError(t, err)

		task.NextRetryAt = time.Now().Add(-time.Second)
		require.NoError(t, s.PutDeliveryTask(task))

		ob.DrainOnce()
		time.Sleep(100 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		task, err := s.GetDeliveryTask(taskID)

		return err == nil && task.Status == store.TaskFailed
	}, 2*time.Second, 50*time.Millisecond)

	task, err = s.GetDeliveryTask(taskID)
	require.NoError(t, err)
	require.LessOrEqual(t, task.RetryCount, 3)
	require.NotEmpty(t, task.Error)
}

func TestOutbox_PartialSuccessRetriesOnlyFailed(t *testing.T) {
	tp := &mockTransport{statusCode: http.StatusOK}
	resolver := &mockResolver{inbox: vocab.MustParseURL("https://remote.example/users/bob/inbox")}

	ob, s := newTestOutbox(t, tp, resolver)

	task := &store.DeliveryTask{
		ID:       "task1",
		Activity: vocab.MustMarshalToDoc(newTestActivity(t)),
		Recipients: []*store.Recipient{
			{URI: "https://remote.example/users/bob", Delivered: true},
			{URI: "https://remote.example/users/carol"},
		},
		Status:      store.TaskPending,
		NextRetryAt: time.Now().Add(-time.Second),
		CreatedAt:   time.Now(),
	}

	require.NoError(t, s.PutDeliveryTask(task))

	ob.DrainOnce()

	// Only the undelivered recipient is posted to.
	require.Eventually(t, func() bool {
		return len(tp.postedTo()) == 1
	}, 2*time.Second, 50*time.Millisecond)
}

func TestOutbox_SharedInboxFallback(t *testing.T) {
	tp := &mockTransport{statusCode: http.StatusOK}
	resolver := &mockResolver{err: errors.New("not an actor")}

	ob, _ := newTestOutbox(t, tp, resolver)

	_, err := ob.Deliver(newTestActivity(t), []string{"https://remote.example/objects/1"}, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		posts := tp.postedTo()

		return len(posts) == 1 && posts[0] == "https://remote.example/inbox"
	}, 2*time.Second, 50*time.Millisecond)
}

func TestOutbox_Cleanup(t *testing.T) {
	ob, s := newTestOutbox(t, &mockTransport{statusCode: http.StatusOK}, &mockResolver{})

	stale := &store.DeliveryTask{
		ID:          "stale",
		Activity:    vocab.MustMarshalToDoc(newTestActivity(t)),
		Recipients:  []*store.Recipient{{URI: "https://remote.example/users/bob"}},
		Status:      store.TaskFailed,
		NextRetryAt: time.Now(),
		CreatedAt:   time.Now().Add(-2 * time.Hour),
	}

	fresh := &store.DeliveryTask{
		ID:          "fresh",
		Activity:    vocab.MustMarshalToDoc(newTestActivity(t)),
		Recipients:  []*store.Recipient{{URI: "https://remote.example/users/bob"}},
		Status:      store.TaskPending,
		NextRetryAt: time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	}

	require.NoError(t, s.PutDeliveryTask(stale))
	require.NoError(t, s.PutDeliveryTask(fresh))

	ob.Cleanup()

	_, err := s.GetDeliveryTask("stale")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetDeliveryTask("fresh")
	require.NoError(t, err)

	stats, err := ob.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 0, stats.Failed)
}

func TestRetryInterval(t *testing.T) {
	require.Equal(t, 2*time.Second, retryInterval(1))
	require.Equal(t, 4*time.Second, retryInterval(2))
	require.Equal(t, 8*time.Second, retryInterval(3))
	require.Equal(t, 5*time.Minute, retryInterval(20))
}

func TestOutbox_ConcurrentDrainsDeliverOnce(t *testing.T) {
	tp := &mockTransport{statusCode: http.StatusAccepted}
	resolver := &mockResolver{inbox: vocab.MustParseURL("https://remote.example/users/bob/inbox")}

	ob, s := newTestOutbox(t, tp, resolver)

	doc, err := vocab.MarshalToDoc(newTestActivity(t))
	require.NoError(t, err)

	require.NoError(t, s.PutDeliveryTask(&store.DeliveryTask{
		ID:          "task-concurrent",
		Activity:    doc,
		Recipients:  []*store.Recipient{{URI: "https://remote.example/users/bob"}},
		Status:      store.TaskPending,
		NextRetryAt: time.Now(),
		CreatedAt:   time.Now(),
	}))

	errs := make(chan error, 5)

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- ob.processTask("task-concurrent")
		}()
	}

	wg.Wait()
	close(errs)

	for e := range errs {
		require.NoError(t, e)
	}

	// The task is claimed by exactly one drain; the others skip it.
	require.Len(t, tp.postedTo(), 1)
}
