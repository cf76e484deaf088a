package handlers

import (
	"html/template"

	"github.com/sbilibin2017/gw-login/internal/models"
)

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Login</title>
</head>
<body>
<h1>Login</h1>
{{with .State.Message}}<p class="login-error" role="alert">{{.}}</p>{{end}}
<form method="POST" action="/login">
  <label for="email">Email address</label>
  <input id="email" name="email" type="email" placeholder="Enter email" value="{{.Email}}" autocomplete="username">
  {{with index .State.FieldErrors "email"}}<p class="field-error">{{.}}</p>{{end}}
  <label for="password">Password</label>
  <input id="password" name="password" type="password" placeholder="Password" autocomplete="current-password">
  {{with index .State.FieldErrors "password"}}<p class="field-error">{{.}}</p>{{end}}
  <button type="submit">Submit</button>
</form>
</body>
</html>`))

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Home</title>
</head>
<body>
<p>Signed in as {{.Email}}</p>
<form method="POST" action="/logout"><button type="submit">Sign out</button></form>
</body>
</html>`))

type loginPage struct {
	Email string
	State models.SubmissionState
}
