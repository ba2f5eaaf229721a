package controllers

import (
	"backoffice/applog"
	"backoffice/middlewares"
	"backoffice/models"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"
)

const (
	sessionTTL = 30 * time.Minute
	resetTTL   = time.Hour
	resetKey   = "reset:"
)

const defaultResetTemplate = `<p>We received a request to reset your password.</p>
<p><a href="%URL%">Choose a new password</a></p>
<p>If you did not ask for this, ignore this email.</p>`

func (api *API) Authenticate(c *gin.Context) {
	var authRequest models.AuthRequest
	if err := c.ShouldBindJSON(&authRequest); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if authRequest.Email == "" || authRequest.Password == "" {
		sendError(c, http.StatusBadRequest, "missing-email-or-password")
		return
	}

	email := strings.ToLower(strings.TrimSpace(authRequest.Email))

	var authResponse models.AuthResponse
	var hash string
	err := api.Db.QueryRowxContext(c.Request.Context(), api.Db.Rebind(`
		SELECT id, email, name, role, password_hash
		FROM users
		WHERE email = ?
	`), email).Scan(&authResponse.User.Id, &authResponse.User.Email, &authResponse.User.Name, &authResponse.User.Role, &hash)

	if err != nil {
		if err == sql.ErrNoRows {
			applog.Security(c, "auth.login_failed", map[string]interface{}{"email": email})
			sendError(c, http.StatusUnauthorized, "invalid-email-or-password")
			return
		}

		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(authRequest.Password)) != nil {
		applog.Security(c, "auth.login_failed", map[string]interface{}{"email": email})
		sendError(c, http.StatusUnauthorized, "invalid-email-or-password")
		return
	}

	sessPayload, _ := api.Redis.Get(c.Request.Context(), "auth:"+email).Result()
	if sessPayload != "" {
		log.Println("removing old session..")
		api.Redis.Del(c.Request.Context(), sessPayload)
	}

	authResponse.Token, err = api.GenerateToken(authResponse)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Set("user_id", authResponse.User.Id)
	applog.Audit(c, "auth.login", nil)

	c.JSON(http.StatusOK, authResponse)
}

func (api *API) CheckSession(c *gin.Context) {
	u := ParsePayload(c)

	err := api.Redis.Get(c.Request.Context(), "auth:"+u.Email).Err()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) RefreshSession(c *gin.Context) {
	u := ParsePayload(c)
	ctx := c.Request.Context()

	refreshPayload, err := api.Redis.Get(ctx, u.RefreshToken).Result()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var authResponse models.AuthResponse

	if err := json.Unmarshal([]byte(refreshPayload), &authResponse); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	err = api.Redis.Get(ctx, "auth:"+u.Email).Err()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	authResponse.Token, err = api.GenerateToken(authResponse)
	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, authResponse)
}

func (api *API) Logout(c *gin.Context) {
	u := ParsePayload(c)
	ctx := c.Request.Context()

	for _, key := range []string{middlewares.Token(c), u.RefreshToken, "auth:" + u.Email} {
		if err := api.Redis.Del(ctx, key).Err(); err != nil {
			log.Println(err)
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	applog.Audit(c, "auth.logout", nil)

	c.JSON(http.StatusOK, genericOK)
}

// GenerateToken signs a session token and its refresh token and stores both,
// plus the user's current-session pointer, in redis.
func (api *API) GenerateToken(resp models.AuthResponse) (string, error) {
	key, err := base64.StdEncoding.DecodeString(api.Config.SessionKey)
	if err != nil {
		log.Println(err)
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.FormatInt(resp.Id, 10)))
	mac.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))

	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["user-id"] = resp.Id
	claims["session-id"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	claims["expires"] = int(sessionTTL.Seconds())

	refreshToken, err := token.SignedString(key)
	if err != nil {
		log.Println(err)
		return "", err
	}

	claims["refresh-token"] = refreshToken
	claims["user"] = resp.User

	redisPayload, _ := json.Marshal(claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		log.Println(err)
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := [][2]string{
		{tokenString, string(redisPayload)},
		{refreshToken, string(redisPayload)},
		{"auth:" + resp.Email, tokenString},
	}

	for _, kv := range data {
		if err := api.Redis.Set(ctx, kv[0], kv[1], sessionTTL).Err(); err != nil {
			log.Println(err)
			return "", err
		}
	}

	return fmt.Sprintf("Bearer %s", tokenString), nil
}

func (api *API) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		sendError(c, http.StatusBadRequest, "missing-email")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, "invalid-email")
		return
	}

	ctx := c.Request.Context()

	var userID int64
	err := api.Db.GetContext(ctx, &userID, api.Db.Rebind("SELECT id FROM users WHERE email = ?"), email)
	if err == sql.ErrNoRows {
		// unknown addresses get the same answer
		applog.Security(c, "auth.reset_unknown_email", map[string]interface{}{"email": email})
		c.JSON(http.StatusOK, genericOK)
		return
	}

	if err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	token := tokenGenerator()
	if err := api.Redis.Set(ctx, resetKey+token, userID, resetTTL).Err(); err != nil {
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := api.sendEmailReset(email, token); err != nil {
		log.Println(err)
		api.Redis.Del(ctx, resetKey+token)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	applog.Audit(c, "auth.reset_requested", map[string]interface{}{"user_id": userID})

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) VerifyTokenReset(c *gin.Context) {
	err := api.Redis.Get(c.Request.Context(), resetKey+c.Param("token")).Err()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusNotFound, "invalid-token")
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) UpdateUserReset(c *gin.Context) {
	var req models.PasswordReset
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Println(err)
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Password) < 8 {
		sendError(c, http.StatusBadRequest, "password-must-be-at-least-8-characters")
		return
	}

	if req.Password != req.PasswordConfirmation {
		sendError(c, http.StatusBadRequest, "password-confirmation-mismatch")
		return
	}

	ctx := c.Request.Context()
	key := resetKey + c.Param("token")

	userID, err := api.Redis.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			sendError(c, http.StatusNotFound, "invalid-token")
			return
		}
		log.Println(err)
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	email, err := api.UpdatePassword(ctx, userID, req.Password)
	if err == ErrNotFound {
		sendError(c, http.StatusNotFound, "invalid-token")
		return
	}

	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	// the token is single use and open sessions end with the old password
	api.Redis.Del(ctx, key)
	if current, _ := api.Redis.Get(ctx, "auth:"+email).Result(); current != "" {
		api.Redis.Del(ctx, current, "auth:"+email)
	}

	c.Set("user_id", userID)
	applog.Audit(c, "auth.password_reset", nil)

	c.JSON(http.StatusOK, genericOK)
}

func (api *API) UpdatePassword(ctx context.Context, id int64, password string) (email string, err error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Println(err)
		return "", err
	}

	err = api.Db.GetContext(ctx, &email, api.Db.Rebind(`
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING email
	`), string(hash), id)

	if err != nil {
		if err == sql.ErrNoRows {
			err = ErrNotFound
		}
		log.Println(err)
	}

	return
}

func (api *API) sendEmailReset(email, token string) error {
	cfg := api.Config.Email

	body, err := os.ReadFile(cfg.ResetTemplate)
	if err != nil {
		log.Println(err)
		body = []byte(defaultResetTemplate)
	}

	url := api.Config.WebURL + "/forgot-password?token=" + token
	content := strings.ReplaceAll(string(body), "%URL%", url)

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", cfg.From)
	mailer.SetHeader("To", email)
	mailer.SetHeader("Subject", cfg.ResetSubject)
	mailer.SetBody("text/html", content)

	t := time.Now()
	err = api.Mail(mailer)
	if err != nil {
		log.Println(err)
	}

	log.Println(time.Since(t))

	return err
}

func (api *API) dialAndSend(m *gomail.Message) error {
	cfg := api.Config.Email
	return gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword).DialAndSend(m)
}
