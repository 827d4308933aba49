/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package nodeinfo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/store/memstore"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
)

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()

	cfg, err := config.New("https://example.com")
	require.NoError(t, err)

	s := memstore.New("test")

	return NewService(cfg, s, time.Minute), s
}

func TestService_GetNodeInfo(t *testing.T) {
	svc, s := newTestService(t)

	require.NoError(t, s.PutActor(&store.StoredActor{Handle: "alice"}))

	post := vocab.NewCreateActivity(
		vocab.NewObjectProperty(vocab.WithObject(vocab.NewObject(
			vocab.WithID(vocab.MustParseURL("https://example.com/ap/content/blog/post-1")),
			vocab.WithType(vocab.TypeArticle),
		))),
		vocab.WithID(vocab.MustParseURL("https://example.com/ap/activities/create/post-1-1")),
		vocab.WithActor(vocab.MustParseURL("https://example.com/@alice")),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
	)

	reply := vocab.NewCreateActivity(
		vocab.NewObjectProperty(vocab.WithObject(vocab.NewObject(
			vocab.WithID(vocab.MustParseURL("https://example.com/ap/content/notes/reply-1")),
			vocab.WithType(vocab.TypeNote),
			vocab.WithInReplyTo(vocab.MustParseURL("https://remote.example/notes/1")),
		))),
		vocab.WithID(vocab.MustParseURL("https://example.com/ap/activities/create/reply-1-1")),
		vocab.WithActor(vocab.MustParseURL("https://example.com/@alice")),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
	)

	require.NoError(t, s.AddActivity(store.Outbox, post))
	require.NoError(t, s.AddActivity(store.Outbox, reply))

	require.NoError(t, svc.Refresh())

	nodeInfo := svc.GetNodeInfo(V2_0)
	require.Equal(t, V2_0, nodeInfo.Version)
	require.Equal(t, "fedipress", nodeInfo.Software.Name)
	require.Empty(t, nodeInfo.Software.Repository)
	require.Equal(t, []string{activityPubProtocol}, nodeInfo.Protocols)
	require.Equal(t, 1, nodeInfo.Usage.Users.Total)
	require.Equal(t, 1, nodeInfo.Usage.LocalPosts)
	require.Equal(t, 1, nodeInfo.Usage.LocalComments)
	require.Equal(t, []string{"atom1.0", "rss2.0"}, nodeInfo.Services.Outbound)
	require.Contains(t, nodeInfo.Metadata, "federation")
	require.Contains(t, nodeInfo.Metadata, "features")
	require.Contains(t, nodeInfo.Metadata, "contentTypes")

	// 2.1 additionally reports the source repository.
	require.NotEmpty(t, svc.GetNodeInfo(V2_1).Software.Repository)
}

func TestHandler(t *testing.T) {
	svc, _ := newTestService(t)

	handler := NewHandler(V2_0, svc)
	require.Equal(t, "/nodeinfo/2.0", handler.Path())
	require.Equal(t, http.MethodGet, handler.Method())

	rw := httptest.NewRecorder()
	handler.Handler()(rw, httptest.NewRequest(http.MethodGet, "/nodeinfo/2.0", nil))

	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Header().Get("Content-Type"), "2.0")

	nodeInfo := &NodeInfo{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), nodeInfo))
	require.Equal(t, V2_0, nodeInfo.Version)
}

func TestWellKnownHandler(t *testing.T) {
	handler := NewWellKnownHandler("https://example.com")
	require.Equal(t, "/.well-known/nodeinfo", handler.Path())

	rw := httptest.NewRecorder()
	handler.Handler()(rw, httptest.NewRequest(http.MethodGet, "/.well-known/nodeinfo", nil))

	require.Equal(t, http.StatusOK, rw.Code)

	response := &WellKnownResponse{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), response))
	require.Len(t, response.Links, 2)
	require.Equal(t, "https://example.com/nodeinfo/2.0", response.Links[0].Href)
}

func TestServiceLifecycle(t *testing.T) {
	svc, _ := newTestService(t)

	svc.Start()
	defer svc.Stop()

	require.NoError(t, svc.Refresh())
}
