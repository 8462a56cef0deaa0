package downloader

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory caches downloaded packages in memory, keyed by URL.
type Memory struct {
	records map[string]memRecord

	mutex sync.Mutex
}

type memRecord struct {
	body        []byte
	retrievedAt time.Time
}

func NewMemory() *Memory {
	return &Memory{records: map[string]memRecord{}}
}

func (m *Memory) Get(ctx context.Context, url string, options GetOptions) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if options.Cache {
		if record, found := m.records[url]; found {
			if record.retrievedAt.Add(options.CacheTTL).After(time.Now()) {
				return record.body, nil
			}
		}
	}

	body, err := HTTPGet(ctx, url, options)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}

	if options.Cache {
		m.records[url] = memRecord{
			body:        body,
			retrievedAt: time.Now(),
		}
	}

	return body, nil
}
