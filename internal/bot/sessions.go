package bot

import (
	"sync"

	"pdfsum/internal/acquire"
)

const maxBatchFiles = 20

type session struct {
	apiKey     string
	collecting bool
	batch      []acquire.File
}

// sessions keeps per-chat state: an API key override and an open batch.
type sessions struct {
	mu     sync.Mutex
	byChat map[int64]*session
}

func newSessions() *sessions {
	return &sessions{byChat: make(map[int64]*session)}
}

func (s *sessions) getLocked(chatID int64) *session {
	sess, ok := s.byChat[chatID]
	if !ok {
		sess = &session{}
		s.byChat[chatID] = sess
	}
	return sess
}

func (s *sessions) setKey(chatID int64, apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getLocked(chatID).apiKey = apiKey
}

func (s *sessions) key(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byChat[chatID]; ok {
		return sess.apiKey
	}
	return ""
}

func (s *sessions) startBatch(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(chatID)
	sess.collecting = true
	sess.batch = nil
}

func (s *sessions) collecting(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	return ok && sess.collecting
}

// addToBatch appends file to the open batch and returns the new size.
// It reports false when no batch is open or the batch is full.
func (s *sessions) addToBatch(chatID int64, file acquire.File) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	if !ok || !sess.collecting || len(sess.batch) >= maxBatchFiles {
		return 0, false
	}

	sess.batch = append(sess.batch, file)

	return len(sess.batch), true
}

// takeBatch closes the batch and returns its files.
func (s *sessions) takeBatch(chatID int64) ([]acquire.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byChat[chatID]
	if !ok || !sess.collecting {
		return nil, false
	}

	files := sess.batch
	sess.collecting = false
	sess.batch = nil

	return files, true
}

func (s *sessions) cancelBatch(chatID int64) bool {
	_, ok := s.takeBatch(chatID)
	return ok
}
