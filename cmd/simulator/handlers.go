package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Server 持有模擬器的共用依賴
type Server struct {
	store  *Store
	hub    *Hub
	secret []byte
	logger *slog.Logger
}

// handleToken 簽發 access token
// 模擬器接受任何帳號密碼組合，使用者 id 由帳號名稱決定，
// 同一個帳號在重啟前拿到的是同一個身份
func (s *Server) handleToken(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	userID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(username)).String()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": username + "@simulator.local",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error("failed to sign token", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   86400,
	})
}

// parseToken 驗證 bearer token 並取出使用者身份
func (s *Server) parseToken(raw string) (userID, email string, err error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid claims")
	}
	userID, _ = claims["sub"].(string)
	email, _ = claims["email"].(string)
	if userID == "" {
		return "", "", errors.New("missing sub claim")
	}
	return userID, email, nil
}

// bearerToken 從標頭或 query string 取出 token
// websocket 握手無法帶自訂標頭，走 query string
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return c.Query("token")
}

// authMiddleware 強制認證，無效 token 回 401
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, email, err := s.parseToken(bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("userID", userID)
		c.Set("email", email)
		c.Next()
	}
}

// optionalAuth 嘗試認證但不強制，訪客視角的 userID 為空字串
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, email, err := s.parseToken(bearerToken(c)); err == nil {
			c.Set("userID", userID)
			c.Set("email", email)
		}
		c.Next()
	}
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.GetString("userID"),
		"email": c.GetString("email"),
	})
}

// handleNextAuction 回傳指定不動產的下一場拍賣
// 支援直接以 propertyId 查詢，或以 source/agency/id 三元組查詢
func (s *Server) handleNextAuction(c *gin.Context) {
	propertyID := c.Param("propertyId")
	if c.Param("agency") != "" {
		// source 三元組在模擬器中一律映射到播種的拍賣
		propertyID = s.store.propertyID
	}

	view, err := s.store.ViewFor(propertyID, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleRegister(c *gin.Context) {
	var body struct {
		AuctionID string `json:"auctionId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	c.JSON(http.StatusOK, s.store.Register(c.GetString("userID")))
}

func (s *Server) handleBid(c *gin.Context) {
	var body struct {
		AuctionID string `json:"auctionId"`
		Amount    int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	bid, err := s.store.PlaceBid(c.GetString("userID"), body.Amount)
	if err != nil {
		var tooLow *BidTooLowError
		switch {
		case errors.As(err, &tooLow):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"code": "bid_amount_too_low",
				"min":  tooLow.Min,
			})
		case errors.Is(err, ErrAuctionNotInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			s.logger.Error("failed to place bid", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		}
		return
	}
	c.JSON(http.StatusOK, bid)
}
