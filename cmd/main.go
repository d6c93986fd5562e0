// cmd/main.go
package main

import (
	"knoword-api/app"
)

// @title           Knoword API
// @version         1.0
// @description     Account and session API of the Knoword vocabulary game.

// @contact.name   API Support
// @contact.email  support@knoword.app

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
