/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package outbox delivers activities to the inboxes of remote recipients.
// Delivery tasks are persisted to the store and drained asynchronously with
// exponential-backoff retries.
package outbox

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/client/transport"
	"github.com/fedipress/fedipress/pkg/activitypub/httpsig"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
	"github.com/fedipress/fedipress/pkg/lifecycle"
	"github.com/fedipress/fedipress/pkg/metrics"
	"github.com/fedipress/fedipress/pkg/pubsub/spi"
)

var logger = log.New("activitypub_outbox")

// DeliveryTopic is the topic over which the drain is notified of new tasks.
const DeliveryTopic = "activity.delivery"

const (
	defaultMaxRetries     = 3
	defaultRequestTimeout = 10 * time.Second
	defaultMaxFanOut      = 10
	defaultCleanupMaxAge  = time.Hour
	defaultPoolSize       = 5
)

// Config holds configuration parameters for the outbox.
type Config struct {
	// MaxRetries is the terminal cap for per-task retries.
	MaxRetries int

	// RequestTimeout is the hard timeout per outbound HTTP request.
	RequestTimeout time.Duration

	// MaxFanOut bounds the number of recipients of one task that are
	// dispatched in parallel.
	MaxFanOut int

	// CleanupMaxAge is the age past which terminal tasks are removed.
	CleanupMaxAge time.Duration

	// LogDir is the directory holding per-task NDJSON delivery logs.
	LogDir string

	// SubscriberPoolSize is the size of the drain subscriber pool.
	SubscriberPoolSize int
}

type pubSub interface {
	SubscribeWithOpts(ctx context.Context, topic string, opts ...spi.Option) (<-chan *message.Message, error)
	Publish(topic string, messages ...*message.Message) error
}

type httpTransport interface {
	Post(ctx context.Context, req *transport.Request, payload []byte) (*http.Response, error)
}

type inboxResolver interface {
	GetActor(actorIRI *url.URL) (*vocab.ActorType, error)
	ResolveInbox(actor *vocab.ActorType, preferShared bool) (*url.URL, error)
}

type taskStore interface {
	store.DeliveryStore
	store.ActorStore
	store.ActivityStore
}

// Outbox delivers activities to remote inboxes.
type Outbox struct {
	*Config
	*lifecycle.Lifecycle

	taskStore   taskStore
	pubSub      pubSub
	transport   httpTransport
	resolver    inboxResolver
	msgChan     <-chan *message.Message
	deliveryLog *deliveryLog
	metrics     metrics.Provider
	wg          sync.WaitGroup

	inflightMutex sync.Mutex
	inflight      map[string]struct{}
}

// New returns a new outbox.
func New(cnfg *Config, s taskStore, ps pubSub, t httpTransport, resolver inboxResolver,
	metricsProvider metrics.Provider) (*Outbox, error) {
	cfg := populateConfigDefaults(cnfg)

	msgChan, err := ps.SubscribeWithOpts(context.Background(), DeliveryTopic, spi.WithPool(cfg.SubscriberPoolSize))
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", DeliveryTopic, err)
	}

	h := &Outbox{
		Config:      &cfg,
		taskStore:   s,
		pubSub:      ps,
		transport:   t,
		resolver:    resolver,
		msgChan:     msgChan,
		deliveryLog: newDeliveryLog(cfg.LogDir),
		metrics:     metricsProvider,
		inflight:    make(map[string]struct{}),
	}

	h.Lifecycle = lifecycle.New("outbox",
		lifecycle.WithStart(h.start),
		lifecycle.WithStop(h.stop),
	)

	return h, nil
}

func populateConfigDefaults(cnfg *Config) Config {
	cfg := *cnfg

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	if cfg.MaxFanOut == 0 {
		cfg.MaxFanOut = defaultMaxFanOut
	}

	if cfg.CleanupMaxAge == 0 {
		cfg.CleanupMaxAge = defaultCleanupMaxAge
	}

	if cfg.SubscriberPoolSize == 0 {
		cfg.SubscriberPoolSize = defaultPoolSize
	}

	return cfg
}

func (h *Outbox) start() {
	h.wg.Add(1)

	go h.listen()
}

func (h *Outbox) stop() {
	h.wg.Wait()

	logger.Info("Stopped outbox")
}

func (h *Outbox) listen() {
	defer h.wg.Done()

	for msg := range h.msgChan {
		h.handleMessage(msg)
	}
}

// Deliver validates the activity, archives it to the local actor's outbox,
// persists a delivery task and notifies the drain. Activities that are
// emitted by the same local actor are enqueued in program order.
func (h *Outbox) Deliver(activity *vocab.ActivityType, recipients []string, senderHandle string) (string, error) {
	if h.State() != lifecycle.StateStarted {
		return "", lifecycle.ErrNotStarted
	}

	if err := activity.Validate(); err != nil {
		return "", fperrors.NewBadRequest(fmt.Errorf("validate activity: %w", err))
	}

	if err := h.taskStore.AddActivity(store.Outbox, activity); err != nil {
		return "", fmt.Errorf("archive activity [%s]: %w", activity.ID(), err)
	}

	if len(recipients) == 0 {
		logger.Debug("No recipients for activity. Nothing to deliver.",
			log.WithActivityID(activity.ID()))

		return "", nil
	}

	doc, err := vocab.MarshalToDoc(activity)
	if err != nil {
		return "", fmt.Errorf("marshal activity [%s]: %w", activity.ID(), err)
	}

	task := &store.DeliveryTask{
		ID:           uuid.NewString(),
		Activity:     doc,
		Recipients:   newRecipients(recipients),
		Status:       store.TaskPending,
		NextRetryAt:  time.Now(),
		CreatedAt:    time.Now(),
		SenderHandle: senderHandle,
	}

	if err := h.taskStore.PutDeliveryTask(task); err != nil {
		return "", fmt.Errorf("store delivery task for activity [%s]: %w", activity.ID(), err)
	}

	h.updateQueueSize()

	if err := h.pubSub.Publish(DeliveryTopic, message.NewMessage(uuid.NewString(), []byte(task.ID))); err != nil {
		logger.Warn("Error notifying drain of new task. The task will be picked up by the next scheduled drain.",
			log.WithTaskID(task.ID), log.WithError(err))
	}

	logger.Info("Enqueued activity for delivery", log.WithActivityID(activity.ID()),
		log.WithTaskID(task.ID), log.WithTotalItems(len(recipients)))

	return task.ID, nil
}

func newRecipients(uris []string) []*store.Recipient {
	seen := make(map[string]struct{}, len(uris))

	recipients := make([]*store.Recipient, 0, len(uris))

	for _, uri := range uris {
		if _, ok := seen[uri]; ok {
			continue
		}

		seen[uri] = struct{}{}

		recipients = append(recipients, &store.Recipient{URI: uri})
	}

	return recipients
}

func (h *Outbox) handleMessage(msg *message.Message) {
	taskID := string(msg.Payload)

	if err := h.processTask(taskID); err != nil {
		logger.Error("Error processing delivery task", log.WithTaskID(taskID), log.WithError(err))
	}

	// The task state machine owns the retries, so the message is always acked.
	msg.Ack()
}

// DrainOnce notifies the drain of every pending task that is due. It is
// invoked periodically so that backed-off tasks are retried.
func (h *Outbox) DrainOnce() {
	tasks, err := h.taskStore.QueryDeliveryTasks()
	if err != nil {
		logger.Error("Error querying delivery tasks", log.WithError(err))

		return
	}

	now := time.Now()

	for _, task := range tasks {
		if task.Status != store.TaskPending || task.NextRetryAt.After(now) {
			continue
		}

		if err := h.pubSub.Publish(DeliveryTopic, message.NewMessage(uuid.NewString(), []byte(task.ID))); err != nil {
			logger.Warn("Error notifying drain of task", log.WithTaskID(task.ID), log.WithError(err))
		}
	}
}

//nolint:funlen
func (h *Outbox) processTask(taskID string) error {
	// Claim the task so that a manual Deliver racing a scheduled drain can't
	// post to the same recipient twice.
	if !h.claim(taskID) {
		return nil
	}

	defer h.release(taskID)

	task, err := h.taskStore.GetDeliveryTask(taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already delivered by a concurrent drain.
			return nil
		}

		return fmt.Errorf("get task: %w", err)
	}

	if task.Status != store.TaskPending || task.NextRetryAt.After(time.Now()) {
		return nil
	}

	task.Status = store.TaskDelivering

	if err := h.taskStore.PutDeliveryTask(task); err != nil {
		return fmt.Errorf("mark task delivering: %w", err)
	}

	payload, err := vocab.Marshal(task.Activity)
	if err != nil {
		return fmt.Errorf("marshal activity of task [%s]: %w", taskID, err)
	}

	key := h.signingKey(task.SenderHandle)

	h.deliverToRecipients(task, payload, key)

	succeeded, failed := 0, 0

	for _, r := range task.Recipients {
		if r.Delivered {
			succeeded++
		} else {
			failed++
		}
	}

	logger.Info("Processed delivery task", log.WithTaskID(taskID),
		log.WithDeliveredCount(succeeded), log.WithFailedCount(failed), log.WithRetries(task.RetryCount))

	switch {
	case failed == 0:
		h.metrics.DeliverySucceeded()

		if err := h.taskStore.DeleteDeliveryTask(taskID); err != nil {
			logger.Warn("Error removing delivered task", log.WithTaskID(taskID), log.WithError(err))
		}
	case task.RetryCount >= h.MaxRetries:
		h.metrics.DeliveryFailed()

		task.Status = store.TaskFailed
		task.Error = fmt.Sprintf("%d of %d recipients unreachable after %d retries",
			failed, len(task.Recipients), task.RetryCount)

		if err := h.taskStore.PutDeliveryTask(task); err != nil {
			return fmt.Errorf("mark task failed: %w", err)
		}
	default:
		// Undelivered recipients are retried with exponential backoff.
		// Recipients that have already succeeded are not re-posted.
		task.RetryCount++
		task.Status = store.TaskPending
		task.NextRetryAt = time.Now().Add(retryInterval(task.RetryCount))

		logger.Info("Delivery task will be retried", log.WithTaskID(taskID),
			log.WithRetries(task.RetryCount), log.WithNextRetry(task.NextRetryAt))

		if err := h.taskStore.PutDeliveryTask(task); err != nil {
			return fmt.Errorf("reschedule task: %w", err)
		}
	}

	h.updateQueueSize()

	return nil
}

// deliverToRecipients posts the payload to every recipient that has not yet
// been delivered to, with bounded fan-out. There are no ordering guarantees
// between recipients of the same activity.
func (h *Outbox) deliverToRecipients(task *store.DeliveryTask, payload []byte, key *transport.Key) {
	var wg sync.WaitGroup

	sem := make(chan struct{}, h.MaxFanOut)

	for _, recipient := range task.Recipients {
		if recipient.Delivered {
			continue
		}

		wg.Add(1)

		sem <- struct{}{}

		go func(r *store.Recipient) {
			defer wg.Done()
			defer func() { <-sem }()

			h.deliverToRecipient(task, r, payload, key)
		}(recipient)
	}

	wg.Wait()
}

func (h *Outbox) deliverToRecipient(task *store.DeliveryTask, recipient *store.Recipient,
	payload []byte, key *transport.Key) {
	now := time.Now()
	recipient.LastAttempt = &now

	inbox, err := h.resolveInbox(recipient.URI)
	if err != nil {
		recipient.LastError = err.Error()

		logger.Warn("Error resolving inbox", log.WithRecipient(recipient.URI),
			log.WithTaskID(task.ID), log.WithError(err))

		h.deliveryLog.Append(task.ID, &logRecord{Recipient: recipient.URI, Error: err.Error(), At: now})

		return
	}

	if err := h.post(inbox, payload, key); err != nil {
		recipient.LastError = err.Error()

		logger.Warn("Error delivering activity", log.WithRecipient(recipient.URI),
			log.WithInboxURL(inbox.String()), log.WithTaskID(task.ID), log.WithError(err))

		h.deliveryLog.Append(task.ID, &logRecord{
			Recipient: recipient.URI, Inbox: inbox.String(), Error: err.Error(), At: now,
		})

		return
	}

	recipient.Delivered = true
	recipient.LastError = ""

	h.deliveryLog.Append(task.ID, &logRecord{
		Recipient: recipient.URI, Inbox: inbox.String(), Success: true, At: now,
	})
}

// resolveInbox fetches the recipient's actor document and returns its inbox.
// A recipient that is not an actor (e.g. the object of a Like on a remote
// server) falls back to the origin's shared inbox.
func (h *Outbox) resolveInbox(recipientURI string) (*url.URL, error) {
	startTime := time.Now()

	defer func() {
		h.metrics.OutboxResolveInboxTime(time.Since(startTime))
	}()

	iri, err := url.Parse(recipientURI)
	if err != nil {
		return nil, fmt.Errorf("parse recipient URI [%s]: %w", recipientURI, err)
	}

	actor, err := h.resolver.GetActor(iri)
	if err != nil {
		if fperrors.IsTransient(err) {
			return nil, fmt.Errorf("get actor [%s]: %w", recipientURI, err)
		}

		sharedInbox := &url.URL{Scheme: iri.Scheme, Host: iri.Host, Path: "/inbox"}

		logger.Debug("Recipient is not a resolvable actor. Falling back to the origin's shared inbox.",
			log.WithRecipient(recipientURI), log.WithInboxURL(sharedInbox.String()))

		return sharedInbox, nil
	}

	return h.resolver.ResolveInbox(actor, true)
}

func (h *Outbox) post(inbox *url.URL, payload []byte, key *transport.Key) error {
	startTime := time.Now()

	defer func() {
		h.metrics.OutboxPostTime(time.Since(startTime))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.RequestTimeout)
	defer cancel()

	opts := []transport.RequestOpt{
		transport.WithHeader(transport.ContentTypeHeader, transport.ActivityJSONContentType),
	}

	if key != nil {
		opts = append(opts, transport.WithKey(key))
	}

	resp, err := h.transport.Post(ctx, transport.NewRequest(inbox, opts...), payload)
	if err != nil {
		return fperrors.NewDelivery(fmt.Errorf("post to %s: %w", inbox, err))
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fperrors.NewDeliveryf("post to %s returned status code %d", inbox, resp.StatusCode)
	}

	return nil
}

// signingKey returns the signing key of the given local actor, or nil if no
// sender was specified or the key cannot be loaded (in which case the
// request is sent unsigned).
func (h *Outbox) signingKey(senderHandle string) *transport.Key {
	if senderHandle == "" {
		return nil
	}

	sender, err := h.taskStore.GetActor(senderHandle)
	if err != nil {
		logger.Warn("Error loading sender key. The request will not be signed.",
			log.WithHandle(senderHandle), log.WithError(err))

		return nil
	}

	privKey, err := httpsig.ParseRSAPrivateKeyFromPEM(sender.PrivateKeyPem)
	if err != nil {
		logger.Warn("Error parsing sender key. The request will not be signed.",
			log.WithHandle(senderHandle), log.WithError(err))

		return nil
	}

	return transport.NewKey(crypto.PrivateKey(privKey), sender.PublicKeyID)
}

// Stats returns the state of the delivery queue.
func (h *Outbox) Stats() (*Stats, error) {
	tasks, err := h.taskStore.QueryDeliveryTasks()
	if err != nil {
		return nil, fmt.Errorf("query delivery tasks: %w", err)
	}

	stats := &Stats{}

	for _, task := range tasks {
		switch task.Status {
		case store.TaskPending, store.TaskDelivering:
			stats.Pending++
		case store.TaskDelivered:
			stats.Delivered++
		case store.TaskFailed:
			stats.Failed++
		}
	}

	return stats, nil
}

// Stats reports the state of the outbound delivery queue.
type Stats struct {
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Cleanup removes terminal tasks that are older than CleanupMaxAge, along
// with their delivery logs. It is intended to be run periodically.
func (h *Outbox) Cleanup() {
	tasks, err := h.taskStore.QueryDeliveryTasks()
	if err != nil {
		logger.Error("Error querying delivery tasks for cleanup", log.WithError(err))

		return
	}

	cutoff := time.Now().Add(-h.CleanupMaxAge)

	for _, task := range tasks {
		if task.Status != store.TaskDelivered && task.Status != store.TaskFailed {
			continue
		}

		if task.CreatedAt.After(cutoff) {
			continue
		}

		if err := h.taskStore.DeleteDeliveryTask(task.ID); err != nil {
			logger.Warn("Error removing terminal task", log.WithTaskID(task.ID), log.WithError(err))

			continue
		}

		h.deliveryLog.Remove(task.ID)

		logger.Debug("Removed terminal delivery task", log.WithTaskID(task.ID))
	}

	h.updateQueueSize()
}

func (h *Outbox) claim(taskID string) bool {
	h.inflightMutex.Lock()
	defer h.inflightMutex.Unlock()

	if _, ok := h.inflight[taskID]; ok {
		return false
	}

	h.inflight[taskID] = struct{}{}

	return true
}

func (h *Outbox) release(taskID string) {
	h.inflightMutex.Lock()
	defer h.inflightMutex.Unlock()

	delete(h.inflight, taskID)
}

func (h *Outbox) updateQueueSize() {
	tasks, err := h.taskStore.QueryDeliveryTasks()
	if err != nil {
		return
	}

	pending := 0

	for _, task := range tasks {
		if task.Status == store.TaskPending || task.Status == store.TaskDelivering {
			pending++
		}
	}

	h.metrics.DeliveryQueueSize(pending)
}
