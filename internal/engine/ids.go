package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewAnalysisID mints a time-ordered, collision-resistant identifier of the form
// "analysis_<uuidv7>".
func NewAnalysisID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("analysis_%d_%s", time.Now().UnixMilli(), uuid.NewString())
	}
	return "analysis_" + id.String()
}
