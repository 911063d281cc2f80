package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce 合并编辑器一次保存产生的多个事件。
const defaultDebounce = 200 * time.Millisecond

// watchJob 监听任务文件，文件被写入或替换后调用 rebuild，直到 ctx 结束。
// 监听的是所在目录，这样编辑器以改名方式保存时也能收到事件。
func watchJob(ctx context.Context, path string, debounce time.Duration, rebuild func() error, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("无法解析路径 %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("监听目录 %s 失败: %w", filepath.Dir(abs), err)
	}
	log.Info("正在监听任务文件", zap.String("path", abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("任务文件变化", zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("文件监听出错", zap.Error(err))
		case <-timer.C:
			if err := rebuild(); err != nil {
				log.Error("重新生成失败", zap.Error(err))
				continue
			}
			log.Info("已重新生成", zap.String("path", abs))
		}
	}
}
