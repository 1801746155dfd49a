package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen se devuelve cuando el breaker corta la llamada sin ejecutarla.
var ErrOpen = errors.New("circuit breaker open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker corta llamadas repetidas a una operación que viene fallando:
// tras Threshold fallas consecutivas se abre por Cooldown, luego deja
// pasar una llamada de prueba antes de cerrarse del todo.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	st       state
	failures int
	openedAt time.Time
}

type Options struct {
	Threshold int           // fallas consecutivas antes de abrir (default 5)
	Cooldown  time.Duration // ventana de corte (default 30s)
	Now       func() time.Time
}

func New(opts Options) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Breaker{
		threshold: opts.Threshold,
		cooldown:  opts.Cooldown,
		now:       opts.Now,
	}
}

// Allow indica si la llamada puede ejecutarse ahora.
// En estado open pasa a half-open cuando vence el cooldown, dejando
// pasar exactamente una llamada de prueba.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.st = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		// ya hay una prueba en vuelo
		return false
	}
	return true
}

// Success registra una llamada exitosa y cierra el breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.st = stateClosed
	b.failures = 0
}

// Failure registra una falla; abre el breaker si se alcanza el umbral
// o si falla la llamada de prueba en half-open.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.st == stateHalfOpen || b.failures >= b.threshold {
		b.st = stateOpen
		b.openedAt = b.now()
	}
}

// Do ejecuta fn si el breaker lo permite y registra el resultado.
func (b *Breaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}
