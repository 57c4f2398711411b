package docs

// @title           School Bus Hub API
// @version         1.0
// @description     Realtime hub for the school bus fleet. Drivers stream locations and schedule status over a WebSocket, parents and admins receive live updates and notifications.

// @contact.name   API Support

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
