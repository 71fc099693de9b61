package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRabbitMQContainer(ctx context.Context, t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": "guest",
			"RABBITMQ_DEFAULT_PASS": "guest",
		},
		WaitingFor: wait.ForListeningPort("5672/tcp").
			WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublisher_RoutesAccountEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	uri := setupRabbitMQContainer(ctx, t)

	conn, err := Connect(uri, 10, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := SetupChannel(conn, "accounts")
	require.NoError(t, err)
	pub := NewPublisher(ch, "accounts")
	defer func() { _ = pub.Close() }()

	consumer, err := conn.Channel()
	require.NoError(t, err)
	defer func() { _ = consumer.Close() }()

	q, err := consumer.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, consumer.QueueBind(q.Name, "account.*", "accounts", false, nil))

	deliveries, err := consumer.Consume(q.Name, "", true, false, false, false, nil)
	require.NoError(t, err)

	event := AccountRegistered{UserID: "u-1", Email: "alice@example.com", Registered: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, pub.Publish(ctx, RoutingAccountRegistered, event))
	// не совпадает с привязкой account.*
	require.NoError(t, pub.Publish(ctx, RoutingPremiumGranted, PremiumGranted{Plan: "pro"}))

	select {
	case d := <-deliveries:
		var got AccountRegistered
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event, got)
		assert.Equal(t, RoutingAccountRegistered, d.RoutingKey)
		assert.Equal(t, "application/json", d.ContentType)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery with key %s", d.RoutingKey)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPublisher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPublisher(nil, "accounts")
	assert.ErrorIs(t, p.Publish(ctx, RoutingAccountRegistered, AccountRegistered{}), context.Canceled)
}

func TestNoop_Publish(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), RoutingPremiumGranted, PremiumGranted{}))
}

func TestPublishMessage_MarshalError(t *testing.T) {
	badMsg := struct {
		Ch chan int `json:"ch"`
	}{Ch: make(chan int)}

	err := PublishMessage(nil, "accounts", "rk", badMsg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
}
