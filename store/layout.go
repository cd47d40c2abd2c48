package store

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	logName    = "user_log.json"
	markerName = "step.json"
	latentExt  = "bin"
	stepPrefix = "step_"
)

// NewSessionID derives a session id from the creation time plus a random
// suffix, e.g. "20240501_120000-1a2b3c4d".
func NewSessionID(t time.Time) string {
	return t.Format("20060102_150405") + "-" + uuid.NewString()[:8]
}

func stepDir(id string, step int) string {
	return path.Join(id, stepPrefix+strconv.Itoa(step))
}

func markerPath(id string, step int) string {
	return path.Join(stepDir(id, step), markerName)
}

func imagePath(id string, step, i int, ext string) string {
	return path.Join(stepDir(id, step), fmt.Sprintf("image_%d.%s", i, ext))
}

func latentPath(id string, step, i int) string {
	return path.Join(stepDir(id, step), fmt.Sprintf("latent_%d.%s", i, latentExt))
}

func logPath(id string) string {
	return path.Join(id, logName)
}

// parseMarker extracts n from "<id>/step_<n>/step.json".
func parseMarker(id, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, id+"/"+stepPrefix)
	if !ok {
		return 0, false
	}
	num, ok := strings.CutSuffix(rest, "/"+markerName)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
