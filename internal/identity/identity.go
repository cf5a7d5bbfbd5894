package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/utils"
)

// DefaultSalt is the development fallback for ABTEST_HASH_SALT. It must not
// be used in production; NewHasher logs a warning when it is active.
const DefaultSalt = "narsimha-abtest-dev-salt"

const SaltEnvVar = "ABTEST_HASH_SALT"

var sessionIDRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// GenerateSessionID returns a fresh UUID-v4 from a crypto-strong source.
func GenerateSessionID() string {
	return uuid.NewString()
}

// IsValidSessionID reports whether s has the UUID-v4 shape.
func IsValidSessionID(s string) bool {
	return sessionIDRe.MatchString(s)
}

// Hasher produces stable keyed digests of identity signals. Same input and
// same salt always yield the same output, across process restarts.
type Hasher struct {
	salt []byte
}

func NewHasher(log *logger.Logger) *Hasher {
	salt := utils.GetEnv(SaltEnvVar, DefaultSalt, log)
	if salt == DefaultSalt && log != nil {
		log.Warn("Hash salt fallback in use, set ABTEST_HASH_SALT in production", "env_var", SaltEnvVar)
	}
	return NewHasherWithSalt(salt)
}

func NewHasherWithSalt(salt string) *Hasher {
	return &Hasher{salt: []byte(salt)}
}

// HashIP returns a low-cardinality numeric-string digest of an IP address,
// for rough deduplication and analytics only.
func (h *Hasher) HashIP(ip string) string {
	return h.numericDigest("ip:" + ip)
}

// HashUserAgent returns a low-cardinality numeric-string digest of a
// user-agent string.
func (h *Hasher) HashUserAgent(ua string) string {
	return h.numericDigest("ua:" + ua)
}

// UserHash derives the stable bucketing hash for one visitor from their
// session id plus whatever request signals are available.
func (h *Hasher) UserHash(sessionID, ip, userAgent string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(sessionID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(ip))
	mac.Write([]byte{'|'})
	mac.Write([]byte(userAgent))
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *Hasher) numericDigest(input string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(input))
	sum := mac.Sum(nil)
	return strconv.FormatUint(binary.BigEndian.Uint64(sum[:8]), 10)
}

var botSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandex",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"whatsapp",
	"telegram",
	"headlesschrome",
	"phantomjs",
	"puppeteer",
	"playwright",
	"selenium",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"okhttp",
	"httpclient",
	"axios",
	"postmanruntime",
	"pingdom",
	"uptimerobot",
	"statuscake",
	"newrelicpinger",
	"datadog",
	"lighthouse",
	"gtmetrix",
}

// IsBot reports whether a user-agent string matches a known crawler,
// headless browser, HTTP library, or monitoring tool signature. Empty
// user-agents are treated as bots: every real browser sends one.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
