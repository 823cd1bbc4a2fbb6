package controllers

import (
	"net/http"
	"regexp"

	"github.com/vkmc/zaqar-websocket/internal/config"
)

// pathValidator checks the queue-name path segment before dispatch, so a
// bad name never reaches the dispatcher through the HTTP binding.
type pathValidator struct {
	re     *regexp.Regexp
	maxLen int
}

func newPathValidator(cfg config.Config) pathValidator {
	return pathValidator{re: regexp.MustCompile(cfg.QueueNameRegex), maxLen: cfg.QueueNameMaxLen}
}

// queueName extracts and validates the {queue} path value. On failure it
// writes a 400 and reports false.
func (v pathValidator) queueName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("queue")
	if name == "" || len(name) > v.maxLen || !v.re.MatchString(name) {
		writeError(w, http.StatusBadRequest, "Queue name is invalid.")
		return "", false
	}
	return name, true
}
