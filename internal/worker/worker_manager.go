package worker

import (
	"context"
	"log/slog"
	"sync"
)

type workerManagerCMDType int

const (
	StartPool workerManagerCMDType = iota
	StopPool
	StartScheduler
)

const (
	PoolTypeWorking = "working"
)

// WorkerManagerCMD is the command struct sent to the manager's loop.
type WorkerManagerCMD struct {
	Type      workerManagerCMDType
	PoolName  string
	PoolType  string
	Pool      Pool
	Scheduler Worker
}

// WorkerManager controls the lifecycle of pools and schedulers.
type WorkerManager struct {
	pools       map[string]Pool
	poolCancels map[string]context.CancelFunc
	wg          *sync.WaitGroup
	mu          sync.RWMutex

	managerContext context.Context
	managerCancel  context.CancelFunc
	cmdChan        chan WorkerManagerCMD
	loopDone       chan struct{}
}

func NewWorkerManager() *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		wg:             new(sync.WaitGroup),
		managerContext: ctx,
		managerCancel:  cancel,
		pools:          make(map[string]Pool),
		poolCancels:    make(map[string]context.CancelFunc),
		cmdChan:        make(chan WorkerManagerCMD, 10),
		loopDone:       make(chan struct{}),
	}
}

func (m *WorkerManager) ManagerContext() context.Context {
	return m.managerContext
}

func (m *WorkerManager) Run() {
	slog.Info("Worker manager starting")
	defer slog.Info("Worker manager halted")
	defer close(m.loopDone)

	for {
		select {
		case cmd := <-m.cmdChan:
			switch cmd.Type {
			case StartPool:
				m.startPool(cmd)
			case StopPool:
				m.stopPool(cmd.PoolName)
			case StartScheduler:
				m.wg.Add(1)
				go cmd.Scheduler.Run(m.managerContext, m.wg)
			}
		case <-m.managerContext.Done():
			slog.Info("Worker manager shutdown signal received, stopping all pools")
			m.mu.Lock()
			for name, cancel := range m.poolCancels {
				slog.Info("Signaling pool to stop", "pool_name", name)
				cancel()
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *WorkerManager) startPool(cmd WorkerManagerCMD) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.poolCancels[cmd.PoolName]; exists {
		slog.Warn("Pool already exists, skipping start", "pool_name", cmd.PoolName, "pool_type", cmd.PoolType)
		return
	}
	slog.Info("Starting pool", "pool_name", cmd.PoolName, "pool_type", cmd.PoolType)
	poolCtx, poolCancel := context.WithCancel(m.managerContext)
	m.poolCancels[cmd.PoolName] = poolCancel
	m.pools[cmd.PoolName] = cmd.Pool
	m.wg.Add(1)
	go cmd.Pool.Start(poolCtx, m.wg)
}

func (m *WorkerManager) stopPool(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel, exists := m.poolCancels[name]
	if !exists {
		slog.Warn("Pool not found, cannot stop", "pool_name", name)
		return
	}
	slog.Info("Stopping pool", "pool_name", name)
	cancel()
	delete(m.poolCancels, name)
	delete(m.pools, name)
}

// StartPool registers pool under its name. The pool is reachable through
// GetPool once the manager loop has processed the command.
func (m *WorkerManager) StartPool(pool Pool, poolType string) {
	m.cmdChan <- WorkerManagerCMD{
		Type:     StartPool,
		PoolName: pool.GetName(),
		PoolType: poolType,
		Pool:     pool,
	}
}

func (m *WorkerManager) StopPool(name string) {
	m.cmdChan <- WorkerManagerCMD{
		Type:     StopPool,
		PoolName: name,
	}
}

func (m *WorkerManager) StartScheduler(scheduler Worker) {
	m.cmdChan <- WorkerManagerCMD{
		Type:      StartScheduler,
		Scheduler: scheduler,
	}
}

func (m *WorkerManager) GetPool(name string) (Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, exists := m.pools[name]
	return pool, exists
}

// Shutdown stops every pool and scheduler and waits for them. Run must be
// running.
func (m *WorkerManager) Shutdown() {
	slog.Info("Worker manager initiating shutdown")
	m.managerCancel()
	<-m.loopDone
	m.wg.Wait()
	slog.Info("Worker manager shutdown complete")
}
