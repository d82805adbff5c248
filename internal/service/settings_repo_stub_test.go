package service

import (
	"context"
	"sync"
	"time"

	"collector/internal/model"
)

type settingsRepoStub struct {
	mu        sync.Mutex
	data      map[string]string
	getErr    map[string]error
	setErr    map[string]error
	deleteErr map[string]error
}

func newSettingsRepoStub() *settingsRepoStub {
	return &settingsRepoStub{
		data:      make(map[string]string),
		getErr:    make(map[string]error),
		setErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (s *settingsRepoStub) Get(ctx context.Context, key string) (*model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.getErr[key]; err != nil {
		return nil, err
	}
	val, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return &model.Setting{
		Key:       key,
		Value:     val,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (s *settingsRepoStub) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setErr[key]; err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

func (s *settingsRepoStub) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteErr[key]; err != nil {
		return err
	}
	delete(s.data, key)
	return nil
}

func (s *settingsRepoStub) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}
