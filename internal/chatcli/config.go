package chatcli

import (
	"io"
	"time"

	"github.com/okian/rehabchat/pkg/logger"
)

// Config holds configuration for a chat session.
type Config struct {
	In       io.Reader     // Questions, one per line
	Out      io.Writer     // Answers
	Prompt   string        // Printed before each question; empty for none
	ShowData bool          // Print the envelope data as JSON after each answer
	Timeout  time.Duration // Per-turn timeout; zero means none
	Logger   logger.Logger // Session log; nil means none
}
