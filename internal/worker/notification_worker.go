package worker

// HandlerRegistrar subscribes event handlers on a dispatcher.
type HandlerRegistrar interface {
	RegisterHandlers()
}

// StartNotificationWorker registers the event handlers of each registrar.
func StartNotificationWorker(registrars ...HandlerRegistrar) {
	for _, r := range registrars {
		if r == nil {
			continue
		}
		r.RegisterHandlers()
	}
}
