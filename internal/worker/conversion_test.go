package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/lexicon"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/matcher"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/queue"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/resolver"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/service"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/store/memory"
)

// capturingBroker records the subscription the worker opens so tests
// can drive its handler directly.
type capturingBroker struct {
	ctx       context.Context
	queueName string
	handler   queue.MessageHandler
}

func (b *capturingBroker) Publish(context.Context, string, []byte) error { return nil }

func (b *capturingBroker) Subscribe(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	b.ctx = ctx
	b.queueName = queueName
	b.handler = handler
	return nil
}

func (b *capturingBroker) Close() error { return nil }

func newTestWorker(t *testing.T) (*ConversionWorker, *capturingBroker, *memory.TaskStore, *memory.MenuStore) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	broker := &capturingBroker{}
	tasks := memory.NewTaskStore()
	menus := memory.NewMenuStore()
	conversions := service.NewConversionService(service.Deps{
		Parser:   parser.New(parser.DefaultLayout()),
		Resolver: resolver.New(matcher.New(lexicon.Default()), memory.NewRuleStore(), nil, resolver.Config{}, logger),
		Menus:    menus,
		Tasks:    tasks,
		Broker:   broker,
		Logger:   logger,
	})
	w := NewConversionWorker(conversions, broker, logger)
	require.NoError(t, w.Start())
	require.NotNil(t, broker.handler)
	return w, broker, tasks, menus
}

func TestWorkerSubscribesToConversionQueue(t *testing.T) {
	w, broker, _, _ := newTestWorker(t)
	assert.Equal(t, queue.QueueMenuConversion, broker.queueName)

	w.Stop()
	assert.ErrorIs(t, broker.ctx.Err(), context.Canceled, "stopping cancels the subscription context")
}

func TestWorkerBouncesMalformedMessages(t *testing.T) {
	_, broker, tasks, _ := newTestWorker(t)

	err := broker.handler(context.Background(), []byte("{not json"))
	require.Error(t, err, "a broken envelope goes back to the broker for retry")

	all, err := tasks.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "no task state changes on an undecodable message")
}

func TestWorkerAcksVanishedTasks(t *testing.T) {
	_, broker, _, _ := newTestWorker(t)

	raw, err := json.Marshal(domain.ConversionMessage{
		TaskID:   primitive.NewObjectID().Hex(),
		MenuName: "week-5",
	})
	require.NoError(t, err)

	// Redelivery cannot bring the task back, so the handler acks.
	assert.NoError(t, broker.handler(context.Background(), raw))
}

func TestWorkerCompletesQueuedTask(t *testing.T) {
	_, broker, tasks, menus := newTestWorker(t)

	ctx := context.Background()
	task := &domain.ConversionTask{
		MenuName:  "week-5",
		Content:   "B: milk\nL: cheese, yogurt\n",
		Format:    string(parser.FormatText),
		Allergens: []domain.Allergen{domain.AllergenDairy},
	}
	require.NoError(t, tasks.Create(ctx, task))

	raw, err := json.Marshal(domain.ConversionMessage{TaskID: task.ID.Hex(), MenuName: task.MenuName})
	require.NoError(t, err)
	require.NoError(t, broker.handler(ctx, raw))

	done, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Empty(t, done.ErrorMessage)
	assert.Zero(t, done.RetryCount)

	require.NotNil(t, done.MenuID)
	menu, err := menus.GetByID(ctx, *done.MenuID)
	require.NoError(t, err)
	assert.Equal(t, "week-5", menu.Name)
	assert.Zero(t, menu.Unresolved, "every dairy item here is covered by a stock rule")
}

func TestWorkerAcksPermanentFailures(t *testing.T) {
	_, broker, tasks, _ := newTestWorker(t)

	ctx := context.Background()
	task := &domain.ConversionTask{
		MenuName:  "broken",
		Content:   "just prose, no meal markers anywhere\n",
		Format:    string(parser.FormatText),
		Allergens: []domain.Allergen{domain.AllergenGluten},
	}
	require.NoError(t, tasks.Create(ctx, task))

	raw, err := json.Marshal(domain.ConversionMessage{TaskID: task.ID.Hex(), MenuName: task.MenuName})
	require.NoError(t, err)
	assert.NoError(t, broker.handler(ctx, raw), "unparseable input never improves on redelivery")

	failed, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)
}
