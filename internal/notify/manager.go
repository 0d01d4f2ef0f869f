package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	taskTypeWelcome = "notify:welcome"
)

// Sender は通知を実際に届ける外部コラボレーターです。
type Sender interface {
	SendWelcome(ctx context.Context, userID string) error
}

// LogSender はログ出力のみを行う Sender 実装です。
// メール等の実配信は行わないため、開発・検証用の既定実装として使います。
type LogSender struct {
	logger *log.Logger
}

// NewLogSender は LogSender を作成します。
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

// SendWelcome はウェルカム通知の内容をログに書き出します。
func (s *LogSender) SendWelcome(ctx context.Context, userID string) error {
	s.logger.Printf("welcome notification delivered user=%s", userID)
	return nil
}

// recordStore は配信記録の保存先を抽象化します。
type recordStore interface {
	Get(ctx context.Context, notificationID string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	MarkSent(ctx context.Context, notificationID string) error
	MarkFailed(ctx context.Context, notificationID string, message string) error
}

// Manager は通知の投入とワーカーを管理します。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  recordStore
	sender Sender
	logger *log.Logger
}

// TaskPayload はウェルカム通知タスクのペイロードです。
type TaskPayload struct {
	NotificationID string `json:"notificationId"`
	UserID         string `json:"userId"`
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store recordStore, sender Sender, logger *log.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if sender == nil {
		return nil, errors.New("sender is nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"notify": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		sender: sender,
		logger: logger,
	}
	mux.HandleFunc(taskTypeWelcome, manager.handleWelcomeTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// EnqueueWelcome はウェルカム通知をキューに投入します。
// 呼び出し元（登録処理）を失敗させないため、エラーは返すだけで配信は保証しません。
func (m *Manager) EnqueueWelcome(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}

	payload := &TaskPayload{
		NotificationID: uuid.NewString(),
		UserID:         userID,
	}

	record := &Record{
		NotificationID: payload.NotificationID,
		UserID:         payload.UserID,
		Kind:           KindWelcome,
		Status:         StatusQueued,
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeWelcome, body, asynq.Queue("notify"))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return err
	}
	return nil
}

func (m *Manager) handleWelcomeTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if payload.NotificationID == "" {
		return fmt.Errorf("missing notificationId in payload")
	}

	// 配信前に記録を読み直し、TTL切れ・配信済みのタスクはリトライ経路でも配信しません。
	record, err := m.store.Get(ctx, payload.NotificationID)
	if err != nil {
		return err
	}
	if record == nil {
		m.logger.Printf("notification record not found id=%s, skipping", payload.NotificationID)
		return nil
	}
	if record.Status == StatusSent {
		return nil
	}

	if err := m.sender.SendWelcome(ctx, payload.UserID); err != nil {
		if markErr := m.store.MarkFailed(ctx, payload.NotificationID, err.Error()); markErr != nil {
			m.logger.Printf("failed to mark notification failed id=%s: %v", payload.NotificationID, markErr)
		}
		return err
	}

	if err := m.store.MarkSent(ctx, payload.NotificationID); err != nil {
		m.logger.Printf("failed to mark notification sent id=%s: %v", payload.NotificationID, err)
	}
	return nil
}
