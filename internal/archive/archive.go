// Package archive persists terminal job records outside the in-memory
// registry. The live execution path never depends on it: the executor writes
// here best-effort once a job completes or fails, so history survives a
// process restart without the store giving up ownership of live records.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"brand-workflow-service/internal/entity"
)

var ErrNotArchived = errors.New("job not archived")

// Archiver stores and retrieves terminal job records.
type Archiver interface {
	Save(ctx context.Context, job entity.Job) error
	Load(ctx context.Context, id uuid.UUID) (entity.Job, error)
}

func encode(job entity.Job) ([]byte, error) {
	if !job.Status.Terminal() {
		return nil, fmt.Errorf("archive: job %s is %s, not terminal", job.ID, job.Status)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("archive: encode job %s: %w", job.ID, err)
	}
	return data, nil
}

func decode(data []byte) (entity.Job, error) {
	var job entity.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return entity.Job{}, fmt.Errorf("archive: decode job: %w", err)
	}
	return job, nil
}
