package session

import (
	"time"

	"go.uber.org/zap"

	"deskwire/internal/pb"
)

// statsWindow is the number of batches averaged per timing log line.
const statsWindow = 30

type videoStats struct {
	batches int
	total   time.Duration
}

// handleVideo submits every sub-frame to the decoder and acknowledges the
// batch once all of them have completed, whatever their outcome.
func (s *Session) handleVideo(v *pb.VideoFrame) {
	s.mu.Lock()
	first := !s.firstFrame
	s.firstFrame = true
	s.mu.Unlock()
	if first {
		s.fe.UI.Msgbox("", "", "", "")
	}

	n := len(v.Frames)
	if n == 0 {
		return
	}
	start := time.Now()
	done := 0
	for _, f := range v.Frames {
		if err := s.fe.Decoder.Decode(v.Display, string(v.Codec), f.Data); err != nil {
			s.log.Debug("decode failed", zap.String("codec", string(v.Codec)), zap.Error(err))
		}
		done++
		if done == n {
			if err := s.send(pb.NewMisc(pb.VideoReceived(true))); err != nil {
				s.log.Debug("send video ack", zap.Error(err))
			}
		}
	}
	s.recordBatch(time.Since(start))
}

func (s *Session) recordBatch(d time.Duration) {
	s.mu.Lock()
	s.video.batches++
	s.video.total += d
	var avg time.Duration
	if s.video.batches == statsWindow {
		avg = s.video.total / statsWindow
		s.video = videoStats{}
	}
	s.mu.Unlock()
	if avg > 0 {
		s.log.Debug("video decode timing", zap.Duration("avg_batch", avg), zap.Int("batches", statsWindow))
	}
}
