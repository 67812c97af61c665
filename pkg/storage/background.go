package storage

import (
	"log"
	"runtime"
	"time"
)

// GetMemoryStats returns current memory usage statistics
func (s *MemoryStore) GetMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s.mu.RLock()
	var documents int
	var docBytes int64
	for _, core := range s.collections {
		core.mu.RLock()
		documents += len(core.docs)
		docBytes += core.bytes
		core.mu.RUnlock()
	}
	collections := len(s.collections)
	s.mu.RUnlock()

	return map[string]interface{}{
		"alloc_mb":       m.Alloc / 1024 / 1024,
		"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
		"sys_mb":         m.Sys / 1024 / 1024,
		"num_goroutines": runtime.NumGoroutine(),
		"collections":    collections,
		"documents":      documents,
		"document_bytes": docBytes,
	}
}

// StartBackgroundWorkers starts the background save worker
func (s *MemoryStore) StartBackgroundWorkers() {
	if !s.backgroundSave {
		return
	}
	if s.dataFile == "" {
		log.Printf("WARN: background save requested without a data file, skipping")
		return
	}

	s.backgroundWg.Add(1)
	go func() {
		defer s.backgroundWg.Done()
		ticker := time.NewTicker(s.saveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.saveIfDirty()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// StopBackgroundWorkers stops background workers and waits for them to exit
func (s *MemoryStore) StopBackgroundWorkers() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.backgroundWg.Wait()
}

func (s *MemoryStore) saveIfDirty() {
	if !s.isDirty() {
		return
	}
	start := time.Now()
	if err := s.SaveToFile(s.dataFile); err != nil {
		log.Printf("ERROR: background save to %s failed: %v", s.dataFile, err)
		return
	}
	log.Printf("INFO: background save to %s completed in %v", s.dataFile, time.Since(start))
}
