package serializers

import (
	"github.com/fileflow-app/fileflow/pkg/fileflow/models"
)

// SerializeShare is what the uploader gets back: enough to hand the code
// and link to someone else.
func SerializeShare(a *models.Artifact) *models.ShareResponse {
	if a == nil {
		return nil
	}
	return &models.ShareResponse{
		PublicUrl: a.PublicUrl,
		Code:      a.Code,
		Filename:  a.Filename,
	}
}
