package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce 最后一次事件之后等待的时间，期间的新事件重新计时
const reloadDebounce = 100 * time.Millisecond

// ShowConfigWatcher 监听配置文件变化并重新加载
// 监听所在目录（编辑器通常以 rename 方式保存），按文件名过滤事件。
// 重载在事件停止 reloadDebounce 之后才执行，原地保存（先截断再写入）只加载写完的内容。
// 加载成功的配置发送到 Updates，失败发送到 Errors；两者都不阻塞监听协程，
// Updates 只保留最新的一份配置。
type ShowConfigWatcher struct {
	Updates chan *ShowConfig
	Errors  chan error

	path    string
	watcher *fsnotify.Watcher
	closeCh chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewShowConfigWatcher 开始监听 filePath
func NewShowConfigWatcher(filePath string) (*ShowConfigWatcher, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &ShowConfigWatcher{
		Updates: make(chan *ShowConfig, 1),
		Errors:  make(chan error, 4),
		path:    abs,
		watcher: fw,
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Close 停止监听并等待监听协程退出，可重复调用
func (w *ShowConfigWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *ShowConfigWatcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			timer.Reset(reloadDebounce)
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *ShowConfigWatcher) reload() {
	cfg, err := LoadShowConfig(w.path)
	if err != nil {
		w.sendError(err)
		return
	}
	log.Printf("[ShowConfigWatcher] Reloaded %s", w.path)

	// 丢弃尚未被消费的旧配置
	select {
	case <-w.Updates:
	default:
	}
	select {
	case w.Updates <- cfg:
	default:
	}
}

func (w *ShowConfigWatcher) sendError(err error) {
	select {
	case w.Errors <- err:
	default:
		log.Printf("[ShowConfigWatcher] Warning: dropped error: %v", err)
	}
}
