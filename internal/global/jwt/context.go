package jwt

import (
	"github.com/gin-gonic/gin"
)

const PayloadKey = "payload"

func GetPayload(c *gin.Context) (payload *Claims, exist bool) {
	v, _ := c.Get(PayloadKey)
	payload, exist = v.(*Claims)
	return
}
