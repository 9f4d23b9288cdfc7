package worker

import (
	"github.com/spec-kit/request-checker/internal/service"
)

// StartNotificationWorker registers notification handlers so status
// updates made through the API notify ticket creators.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
