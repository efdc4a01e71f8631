package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Scorer         ScorerConfig         `mapstructure:"scorer"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		UserBehavior string `mapstructure:"user_behavior"`
	} `mapstructure:"topics"`
}

// ScorerConfig configures the external content-relevance scorer. The service
// may be slow or down entirely; the explore provider degrades without it.
type ScorerConfig struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerMaxFails uint32        `mapstructure:"breaker_max_fails"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RecommendationConfig struct {
	DefaultLimit    int           `mapstructure:"default_limit"`
	CandidateLimit  int           `mapstructure:"candidate_limit"`
	DiversityFactor float64       `mapstructure:"diversity_factor"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	ExcludeWindow   time.Duration `mapstructure:"exclude_window"`
	LookbackWindow  time.Duration `mapstructure:"lookback_window"`
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
	Scoring         ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig centralizes every provider weighting constant so scores can
// be tuned and tested independently of provider logic. The defaults are the
// documented contract, not physically meaningful values.
type ScoringConfig struct {
	FollowingBase          float64 `mapstructure:"following_base"`
	FollowingRecencyWeight float64 `mapstructure:"following_recency_weight"`

	LikeWeight    float64 `mapstructure:"like_weight"`
	CommentWeight float64 `mapstructure:"comment_weight"`
	ShareWeight   float64 `mapstructure:"share_weight"`

	TopicMatchCap      float64 `mapstructure:"topic_match_cap"`
	TopicEngagementCap float64 `mapstructure:"topic_engagement_cap"`
	TopicRecencyCap    float64 `mapstructure:"topic_recency_cap"`

	TrendingLikeWeight    float64       `mapstructure:"trending_like_weight"`
	TrendingCommentWeight float64       `mapstructure:"trending_comment_weight"`
	TrendingShareWeight   float64       `mapstructure:"trending_share_weight"`
	TrendingViewWeight    float64       `mapstructure:"trending_view_weight"`
	TrendingMin           float64       `mapstructure:"trending_min"`
	TrendingMax           float64       `mapstructure:"trending_max"`
	TrendingWindow        time.Duration `mapstructure:"trending_window"`

	SimilarTopicCap          float64 `mapstructure:"similar_topic_cap"`
	SimilarCreatorBonus      float64 `mapstructure:"similar_creator_bonus"`
	SimilarQualityCap        float64 `mapstructure:"similar_quality_cap"`
	SimilarRecencyCap        float64 `mapstructure:"similar_recency_cap"`
	SimilarSeedMinCompletion float64 `mapstructure:"similar_seed_min_completion"`

	ExploreBase  float64 `mapstructure:"explore_base"`
	ExploreRange float64 `mapstructure:"explore_range"`
	ExploreMin   int     `mapstructure:"explore_min"`
	ExploreMax   int     `mapstructure:"explore_max"`

	DiversityProtectTop  int     `mapstructure:"diversity_protect_top"`
	DiversityCreatorPen  float64 `mapstructure:"diversity_creator_penalty"`
	DiversityTopicPen    float64 `mapstructure:"diversity_topic_penalty"`
	DiversityExploreBump float64 `mapstructure:"diversity_explore_bonus"`

	CompletionHighTier   float64 `mapstructure:"completion_high_tier"`
	CompletionMidTier    float64 `mapstructure:"completion_mid_tier"`
	CompletionLowTier    float64 `mapstructure:"completion_low_tier"`
	WeightHighCompletion float64 `mapstructure:"weight_high_completion"`
	WeightMidCompletion  float64 `mapstructure:"weight_mid_completion"`
	WeightLowCompletion  float64 `mapstructure:"weight_low_completion"`
	WeightMinCompletion  float64 `mapstructure:"weight_min_completion"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("server.cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})

	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	viper.SetDefault("kafka.topics.user_behavior", "user-behavior")

	viper.SetDefault("scorer.timeout", "3s")
	viper.SetDefault("scorer.breaker_max_fails", 5)
	viper.SetDefault("scorer.breaker_cooldown", "30s")

	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.requests", 1000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("recommendation.default_limit", 20)
	viper.SetDefault("recommendation.candidate_limit", 40)
	viper.SetDefault("recommendation.diversity_factor", 0.3)
	viper.SetDefault("recommendation.provider_timeout", "2s")
	viper.SetDefault("recommendation.freshness_window", "24h")
	viper.SetDefault("recommendation.exclude_window", "336h")  // 14 days
	viper.SetDefault("recommendation.lookback_window", "720h") // 30 days
	viper.SetDefault("recommendation.profile_cache_ttl", "10m")

	viper.SetDefault("recommendation.scoring.following_base", 90.0)
	viper.SetDefault("recommendation.scoring.following_recency_weight", 10.0)
	viper.SetDefault("recommendation.scoring.like_weight", 0.01)
	viper.SetDefault("recommendation.scoring.comment_weight", 0.02)
	viper.SetDefault("recommendation.scoring.share_weight", 0.03)
	viper.SetDefault("recommendation.scoring.topic_match_cap", 50.0)
	viper.SetDefault("recommendation.scoring.topic_engagement_cap", 30.0)
	viper.SetDefault("recommendation.scoring.topic_recency_cap", 20.0)
	viper.SetDefault("recommendation.scoring.trending_like_weight", 1.5)
	viper.SetDefault("recommendation.scoring.trending_comment_weight", 2.0)
	viper.SetDefault("recommendation.scoring.trending_share_weight", 3.0)
	viper.SetDefault("recommendation.scoring.trending_view_weight", 0.1)
	viper.SetDefault("recommendation.scoring.trending_min", 40.0)
	viper.SetDefault("recommendation.scoring.trending_max", 85.0)
	viper.SetDefault("recommendation.scoring.trending_window", "168h") // 7 days
	viper.SetDefault("recommendation.scoring.similar_topic_cap", 40.0)
	viper.SetDefault("recommendation.scoring.similar_creator_bonus", 20.0)
	viper.SetDefault("recommendation.scoring.similar_quality_cap", 20.0)
	viper.SetDefault("recommendation.scoring.similar_recency_cap", 20.0)
	viper.SetDefault("recommendation.scoring.similar_seed_min_completion", 0.7)
	viper.SetDefault("recommendation.scoring.explore_base", 55.0)
	viper.SetDefault("recommendation.scoring.explore_range", 20.0)
	viper.SetDefault("recommendation.scoring.explore_min", 5)
	viper.SetDefault("recommendation.scoring.explore_max", 10)
	viper.SetDefault("recommendation.scoring.diversity_protect_top", 3)
	viper.SetDefault("recommendation.scoring.diversity_creator_penalty", 10.0)
	viper.SetDefault("recommendation.scoring.diversity_topic_penalty", 15.0)
	viper.SetDefault("recommendation.scoring.diversity_explore_bonus", 5.0)
	viper.SetDefault("recommendation.scoring.completion_high_tier", 0.9)
	viper.SetDefault("recommendation.scoring.completion_mid_tier", 0.7)
	viper.SetDefault("recommendation.scoring.completion_low_tier", 0.4)
	viper.SetDefault("recommendation.scoring.weight_high_completion", 3.0)
	viper.SetDefault("recommendation.scoring.weight_mid_completion", 2.0)
	viper.SetDefault("recommendation.scoring.weight_low_completion", 1.0)
	viper.SetDefault("recommendation.scoring.weight_min_completion", 0.5)
}
