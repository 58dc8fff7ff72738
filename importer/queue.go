package importer

import "sync"

// taskQueue - очередь продолжений для горутины цикла импорта.
// post безопасен из любой горутины и никогда не блокируется.
type taskQueue struct {
	mu    sync.Mutex
	tasks []func() error
	ready chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{ready: make(chan struct{}, 1)}
}

func (q *taskQueue) post(fn func() error) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain забирает накопленные задачи. Задачи, поставленные во время
// их выполнения, достанутся следующему вызову.
func (q *taskQueue) drain() []func() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}
