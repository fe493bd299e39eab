package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix.
// Format: job_<uuid>
//
// Citation IDs are not generated here: they are positional (cit_1..cit_N
// in document order) so that extracting the same text twice produces
// byte-identical results.
func NewJobID() string {
	return "job_" + uuid.New().String()
}
