package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/domain"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/format"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/metrics"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/queue"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/resolver"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/suggest"
)

// GridFetcher pulls a raw cell grid from an external source. The
// Google Sheets client implements it; tests stub it.
type GridFetcher interface {
	Fetch(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
}

var (
	ErrNoFetcher     = errors.New("google sheets source is not configured")
	ErrAsyncDisabled = errors.New("async conversions are not configured")
)

// ConversionService runs menu conversions: parse, resolve, persist.
// Menus, tasks, broker and fetcher are all optional; missing pieces
// disable the operations that need them and nothing else.
type ConversionService struct {
	parser   *parser.Parser
	resolver *resolver.Resolver
	menus    repo.MenuRepository
	tasks    repo.TaskRepository
	broker   queue.Broker
	fetcher  GridFetcher
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
}

type Deps struct {
	Parser   *parser.Parser
	Resolver *resolver.Resolver
	Menus    repo.MenuRepository
	Tasks    repo.TaskRepository
	Broker   queue.Broker
	Fetcher  GridFetcher
	Metrics  *metrics.Metrics
	Logger   *zap.SugaredLogger
}

func NewConversionService(d Deps) *ConversionService {
	return &ConversionService{
		parser:   d.Parser,
		resolver: d.Resolver,
		menus:    d.Menus,
		tasks:    d.Tasks,
		broker:   d.Broker,
		fetcher:  d.Fetcher,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}
}

// ConvertInput names a menu source: inline Content or a SpreadsheetID,
// never both.
type ConvertInput struct {
	MenuName      string
	Content       []byte
	SpreadsheetID string
	ReadRange     string
	Format        parser.Format
	Allergens     domain.AllergenSet
}

// Convert runs one synchronous conversion and stores the result when a
// menu repository is wired.
func (s *ConversionService) Convert(ctx context.Context, in ConvertInput) (*domain.ConvertedMenu, error) {
	start := time.Now()
	menu, err := s.convert(ctx, in)
	if err != nil {
		s.metrics.RecordConversion("failed", time.Since(start).Seconds())
		return nil, err
	}
	s.metrics.RecordConversion("completed", time.Since(start).Seconds())
	return menu, nil
}

func (s *ConversionService) convert(ctx context.Context, in ConvertInput) (*domain.ConvertedMenu, error) {
	doc, err := s.load(ctx, in)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, doc, in.Allergens)
	if err != nil {
		return nil, fmt.Errorf("resolving menu %q: %w", in.MenuName, err)
	}
	s.metrics.RecordResolution(res)

	menu := &domain.ConvertedMenu{
		Name:       in.MenuName,
		Allergens:  in.Allergens.Items(),
		Original:   doc,
		Resolved:   res,
		Unresolved: len(res.Unresolved()),
	}
	if s.menus != nil {
		if err := s.menus.Create(ctx, menu); err != nil {
			return nil, fmt.Errorf("storing converted menu: %w", err)
		}
	}

	s.logger.Infow("menu converted",
		"menu", in.MenuName,
		"allergens", in.Allergens.Strings(),
		"changes", len(res.Changes),
		"unresolved", menu.Unresolved,
	)
	return menu, nil
}

func (s *ConversionService) load(ctx context.Context, in ConvertInput) (*domain.MenuDocument, error) {
	if in.SpreadsheetID != "" {
		if s.fetcher == nil {
			return nil, ErrNoFetcher
		}
		cells, err := s.fetcher.Fetch(ctx, in.SpreadsheetID, in.ReadRange)
		if err != nil {
			return nil, fmt.Errorf("fetching spreadsheet: %w", err)
		}
		return s.parser.ParseGrid(cells)
	}
	if in.Format == "" {
		in.Format = parser.FormatAuto
	}
	return s.parser.Parse(in.Content, in.Format)
}

// CreateTask stores a conversion task and puts it on the queue.
func (s *ConversionService) CreateTask(ctx context.Context, in ConvertInput) (*domain.ConversionTask, error) {
	if s.tasks == nil || s.broker == nil {
		return nil, ErrAsyncDisabled
	}

	task := &domain.ConversionTask{
		MenuName:      in.MenuName,
		Content:       string(in.Content),
		SpreadsheetID: in.SpreadsheetID,
		Format:        string(in.Format),
		Allergens:     in.Allergens.Items(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("creating conversion task: %w", err)
	}

	message, err := json.Marshal(domain.ConversionMessage{TaskID: task.ID.Hex(), MenuName: task.MenuName})
	if err != nil {
		return nil, fmt.Errorf("encoding conversion message: %w", err)
	}
	if err := s.broker.Publish(ctx, queue.QueueMenuConversion, message); err != nil {
		_ = s.tasks.UpdateStatus(ctx, task.ID, domain.StatusFailed, "failed to enqueue: "+err.Error())
		return nil, fmt.Errorf("enqueueing conversion task: %w", err)
	}

	s.metrics.RecordTaskQueued()
	s.logger.Infow("conversion task queued", "task_id", task.ID.Hex(), "menu", task.MenuName)
	return task, nil
}

func (s *ConversionService) GetTask(ctx context.Context, id primitive.ObjectID) (*domain.ConversionTask, error) {
	if s.tasks == nil {
		return nil, ErrAsyncDisabled
	}
	return s.tasks.GetByID(ctx, id)
}

// ProcessTask runs one queued conversion end to end. A nil return acks
// the message. Permanent failures (bad input, configuration) are acked
// too, after marking the task failed, so the broker only redelivers
// genuinely transient trouble.
func (s *ConversionService) ProcessTask(ctx context.Context, msg domain.ConversionMessage) error {
	id, err := primitive.ObjectIDFromHex(msg.TaskID)
	if err != nil {
		s.logger.Errorw("conversion message carries an invalid task id", "task_id", msg.TaskID, "error", err)
		return nil
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Errorw("conversion task not found", "task_id", msg.TaskID)
			return nil
		}
		return err
	}
	if task.Status == domain.StatusCompleted {
		return nil
	}

	if err := s.tasks.UpdateStatus(ctx, id, domain.StatusProcessing, ""); err != nil {
		return err
	}

	var set domain.AllergenSet
	for _, a := range task.Allergens {
		set.Add(a)
	}

	menu, err := s.Convert(ctx, ConvertInput{
		MenuName:      task.MenuName,
		Content:       []byte(task.Content),
		SpreadsheetID: task.SpreadsheetID,
		Format:        parser.Format(task.Format),
		Allergens:     set,
	})
	if err != nil {
		if permanentFailure(err) {
			s.logger.Errorw("conversion task failed permanently", "task_id", msg.TaskID, "error", err)
			return s.tasks.UpdateStatus(ctx, id, domain.StatusFailed, err.Error())
		}
		if _, retryErr := s.tasks.IncrementRetryCount(ctx, id); retryErr != nil {
			s.logger.Errorw("failed to bump retry count", "task_id", msg.TaskID, "error", retryErr)
		}
		_ = s.tasks.UpdateStatus(ctx, id, domain.StatusFailed, err.Error())
		return err
	}

	if !menu.ID.IsZero() {
		if err := s.tasks.AttachMenu(ctx, id, menu.ID); err != nil {
			return err
		}
	}
	return s.tasks.UpdateStatus(ctx, id, domain.StatusCompleted, "")
}

// permanentFailure separates errors a redelivery cannot fix from
// transient infrastructure trouble.
func permanentFailure(err error) bool {
	var parseErr *parser.ParseError
	return errors.As(err, &parseErr) ||
		errors.Is(err, resolver.ErrNoSuggester) ||
		errors.Is(err, suggest.ErrUnauthorized) ||
		errors.Is(err, suggest.ErrMissingAPIKey) ||
		errors.Is(err, ErrNoFetcher)
}

func (s *ConversionService) GetMenu(ctx context.Context, id primitive.ObjectID) (*domain.ConvertedMenu, error) {
	if s.menus == nil {
		return nil, repo.ErrNotFound
	}
	return s.menus.GetByID(ctx, id)
}

func (s *ConversionService) ListMenus(ctx context.Context, limit int64) ([]domain.ConvertedMenu, error) {
	if s.menus == nil {
		return nil, nil
	}
	return s.menus.List(ctx, limit)
}

func (s *ConversionService) DeleteMenu(ctx context.Context, id primitive.ObjectID) error {
	if s.menus == nil {
		return repo.ErrNotFound
	}
	return s.menus.Delete(ctx, id)
}

// ExportMenu renders a stored conversion in the requested format and
// returns the bytes with their content type.
func (s *ConversionService) ExportMenu(ctx context.Context, id primitive.ObjectID, exportFormat parser.Format) ([]byte, string, error) {
	menu, err := s.GetMenu(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if menu.Resolved == nil {
		return nil, "", fmt.Errorf("menu %s has no resolution to export", id.Hex())
	}

	w := format.NewWriter(s.parser.Layout())
	switch exportFormat {
	case parser.FormatText:
		out, err := w.Text(menu.Resolved)
		return out, "text/plain; charset=utf-8", err
	case parser.FormatCSV:
		out, err := w.CSV(menu.Resolved)
		return out, "text/csv", err
	case parser.FormatXLSX:
		out, err := w.XLSX(menu.Resolved)
		return out, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	}
	return nil, "", fmt.Errorf("unsupported export format: %q", exportFormat)
}
