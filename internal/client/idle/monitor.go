// Package idle implements the inactivity watchdog: a periodic check over a
// single activity timestamp with three states - ACTIVE, WARNING, EXPIRED.
// The monitor is inert while the user is not authenticated: no timers run
// until Start, and Stop tears every timer down.
package idle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default tuning, mirroring the web client this replaces.
const (
	DefaultTimeout      = 5 * time.Minute
	DefaultPollInterval = 10 * time.Second
	DefaultWarningLead  = 60 * time.Second
)

// State - состояние наблюдателя
type State int

const (
	StateActive State = iota
	StateWarning
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateWarning:
		return "WARNING"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Decision - ответ пользователя на предупреждение
type Decision int

const (
	// DecisionLogout - пользователь выбрал выход, либо отсчет истек
	DecisionLogout Decision = iota
	// DecisionKeepSession - пользователь хочет продолжить сессию
	DecisionKeepSession
)

//go:generate moq -out prompt_mock.go . Prompt

// Prompt surfaces the warning to the user with a visible countdown and
// blocks until a decision is made or the countdown runs out.
type Prompt interface {
	Warn(ctx context.Context, countdown time.Duration) Decision
}

// Config задает тайминги наблюдателя; нулевые поля получают дефолты
type Config struct {
	Timeout      time.Duration // окно бездействия до принудительного выхода
	PollInterval time.Duration // период проверки ActivityClock
	WarningLead  time.Duration // за сколько до выхода показывать предупреждение
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WarningLead <= 0 || c.WarningLead >= c.Timeout {
		c.WarningLead = DefaultWarningLead
	}
}

// Monitor отслеживает последнюю активность пользователя и принудительно
// завершает сессию после окна бездействия
type Monitor struct {
	prompt   Prompt
	onExpire func()

	cfg Config
	now func() time.Time

	mu      sync.Mutex
	last    time.Time
	state   State
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor создает наблюдатель
// onExpire - общий путь logout; вызывается ровно один раз при EXPIRED
func NewMonitor(cfg Config, prompt Prompt, onExpire func()) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		cfg:      cfg,
		prompt:   prompt,
		onExpire: onExpire,
		now:      time.Now,
	}
}

// Start запускает периодическую проверку
// Повторный Start на работающем мониторе - no-op
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.state = StateActive
	m.last = m.now()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	go m.loop(ctx, stop, done)
}

// Stop останавливает все таймеры; идемпотентен
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
}

// Touch регистрирует сигнал активности пользователя
// Пока монитор не запущен (нет сессии) сигналы игнорируются;
// в состоянии WARNING счетчик сбрасывает только явное решение пользователя
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.state != StateActive {
		return
	}
	m.last = m.now()
}

// LastActivity возвращает ActivityClock
func (m *Monitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// State возвращает текущее состояние
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.evaluate(ctx) {
				// EXPIRED: монитор больше не нужен
				m.mu.Lock()
				m.running = false
				m.mu.Unlock()
				return
			}
		}
	}
}

// evaluate выполняет один шаг машины состояний
// Возвращает false когда сессия завершена
func (m *Monitor) evaluate(ctx context.Context) bool {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return m.state != StateExpired
	}

	idle := m.now().Sub(m.last)
	if idle < m.cfg.Timeout-m.cfg.WarningLead {
		m.mu.Unlock()
		return true
	}

	// Порог пересечен: переход в WARNING ровно один раз за период простоя
	m.state = StateWarning
	m.mu.Unlock()

	slog.Debug("user idle, showing warning", "idle", idle)

	decision := DecisionLogout
	if m.prompt != nil {
		decision = m.prompt.Warn(ctx, m.cfg.WarningLead)
	}

	if decision == DecisionKeepSession {
		// ActivityClock = момент подтверждения
		m.mu.Lock()
		m.last = m.now()
		m.state = StateActive
		m.mu.Unlock()
		return true
	}

	m.mu.Lock()
	m.state = StateExpired
	m.mu.Unlock()

	if m.onExpire != nil {
		m.onExpire()
	}
	return false
}
