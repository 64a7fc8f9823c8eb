package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/queue"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/service"
)

type ConversionWorker struct {
	conversions *service.ConversionService
	broker      queue.Broker
	logger      *zap.SugaredLogger
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewConversionWorker(
	conversions *service.ConversionService,
	broker queue.Broker,
	logger *zap.SugaredLogger,
) *ConversionWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &ConversionWorker{
		conversions: conversions,
		broker:      broker,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (w *ConversionWorker) Start() error {
	w.logger.Info("starting menu conversion worker")

	return w.broker.Subscribe(w.ctx, queue.QueueMenuConversion, w.handleMessage)
}

func (w *ConversionWorker) Stop() {
	w.logger.Info("stopping menu conversion worker")
	w.cancel()
}

func (w *ConversionWorker) handleMessage(ctx context.Context, message []byte) error {
	var msg domain.ConversionMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		w.logger.Errorw("failed to unmarshal message", "error", err)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	w.logger.Infow("processing conversion message", "task_id", msg.TaskID, "menu", msg.MenuName)

	if err := w.conversions.ProcessTask(ctx, msg); err != nil {
		w.logger.Errorw("failed to process conversion task", "task_id", msg.TaskID, "error", err)
		return err
	}

	return nil
}
