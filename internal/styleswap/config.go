package styleswap

import (
	"os"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const QueueCommissions = "commissions"

type App struct {
	Rdb *redis.Client
	Db  *gorm.DB
	Aqc *asynq.Client
	Aqi *asynq.Inspector
}

type AppWorker struct {
	Rdb *redis.Client
	Db  *gorm.DB
	Aqs *asynq.Server
}

func Init() (*App, error) {
	loadEnv()
	db, err := setupDb()
	if err != nil {
		return nil, err
	}
	return &App{
		Rdb: setupRedis(),
		Db:  db,
		Aqc: setupAsynqClient(),
		Aqi: setupAsynqInspector(),
	}, nil
}

func InitWorker(concurrency int, errorHandler asynq.ErrorHandler) (*AppWorker, error) {
	loadEnv()
	db, err := setupDb()
	if err != nil {
		return nil, err
	}
	return &AppWorker{
		Rdb: setupRedis(),
		Db:  db,
		Aqs: setupAsynqServer(concurrency, errorHandler),
	}, nil
}

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Account{},
		&CreditTx{},
		&Affiliate{},
		&Commission{},
		&Settings{},
		&Transaction{},
	}
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

func setupRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}

func setupDb() (*gorm.DB, error) {
	db, err := OpenDb(os.Getenv("DB_DSN"))
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenDb connects to Postgres and runs migrations.
func OpenDb(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, Persistence("connect to the db", err)
	}
	if err = db.AutoMigrate(Models()...); err != nil {
		return nil, Persistence("run migrations", err)
	}
	return db, nil
}

func setupAsynqClient() *asynq.Client {
	return asynq.NewClient(redisOpt())
}

func setupAsynqInspector() *asynq.Inspector {
	return asynq.NewInspector(redisOpt())
}

func setupAsynqServer(concurrency int, errorHandler asynq.ErrorHandler) *asynq.Server {
	if concurrency <= 0 {
		concurrency, _ = strconv.Atoi(os.Getenv("WORKER_CONCURRENCY"))
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(
		redisOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCommissions: 1,
			},
			ErrorHandler: errorHandler,
		},
	)
}

func loadEnv() {
	env := os.Getenv("APP_ENV")
	if "" == env {
		env = "development"
	}

	godotenv.Load(".env." + env + ".local")

	if "test" != env {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	godotenv.Load()
}
