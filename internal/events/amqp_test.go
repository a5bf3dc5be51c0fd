package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	closed    bool
	published []amqp091.Publishing
	keys      []string
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp091.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return amqp091.ErrClosed
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	return nil
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeBroker hands out a new channel per dial and can refuse connections.
type fakeBroker struct {
	channels []*fakeChannel
	conns    []*fakeConn
	down     bool
	dials    int
}

func (b *fakeBroker) dial() (publishChannel, io.Closer, error) {
	b.dials++
	if b.down {
		return nil, nil, errors.New("connection refused")
	}
	ch, conn := &fakeChannel{}, &fakeConn{}
	b.channels = append(b.channels, ch)
	b.conns = append(b.conns, conn)
	return ch, conn, nil
}

func (b *fakeBroker) current() *fakeChannel {
	return b.channels[len(b.channels)-1]
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakePublisher(t *testing.T) (*AMQPPublisher, *fakeBroker, *fakeClock) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	broker := &fakeBroker{}
	p, err := newAMQPPublisher(broker.dial, "expense_tracker", log)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p.now = clock.now
	p.lastDial = clock.t
	return p, broker, clock
}

func testEvent() Event {
	return New(TypeExpenseRecorded, 1, decimal.NewFromInt(30))
}

func TestAMQPPublisher_Publish(t *testing.T) {
	p, broker, _ := newFakePublisher(t)

	require.NoError(t, p.Publish(context.Background(), testEvent()))

	ch := broker.current()
	require.Len(t, ch.published, 1)
	assert.Equal(t, "expense.recorded", ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, amqp091.Persistent, ch.published[0].DeliveryMode)
}

func TestAMQPPublisher_RedialsAfterConnectionLoss(t *testing.T) {
	p, broker, clock := newFakePublisher(t)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, testEvent()))
	first := broker.current()
	require.NoError(t, first.Close())

	clock.advance(redialInterval)
	require.NoError(t, p.Publish(ctx, testEvent()))

	assert.Equal(t, 2, broker.dials)
	assert.True(t, broker.conns[0].closed, "stale connection should be released")
	assert.Len(t, broker.current().published, 1)
}

func TestAMQPPublisher_ThrottlesRedial(t *testing.T) {
	p, broker, clock := newFakePublisher(t)
	ctx := context.Background()

	require.NoError(t, broker.current().Close())
	broker.down = true

	clock.advance(redialInterval)
	assert.Error(t, p.Publish(ctx, testEvent()))
	assert.Equal(t, 2, broker.dials)

	// Too soon for another attempt.
	clock.advance(time.Second)
	assert.Error(t, p.Publish(ctx, testEvent()))
	assert.Equal(t, 2, broker.dials)

	broker.down = false
	clock.advance(redialInterval)
	require.NoError(t, p.Publish(ctx, testEvent()))
	assert.Equal(t, 3, broker.dials)
}

func TestAMQPPublisher_InitialDialFailure(t *testing.T) {
	broker := &fakeBroker{down: true}
	_, err := newAMQPPublisher(broker.dial, "expense_tracker", logrus.New())
	assert.Error(t, err)
}

func TestAMQPPublisher_Close(t *testing.T) {
	p, broker, clock := newFakePublisher(t)

	require.NoError(t, p.Close())
	assert.True(t, broker.current().IsClosed())
	assert.True(t, broker.conns[0].closed)

	clock.advance(redialInterval)
	err := p.Publish(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrPublisherClosed)
	assert.Equal(t, 1, broker.dials)
}
