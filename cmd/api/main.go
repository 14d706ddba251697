package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/academiagest/registro-rrsif/internal/application/auth"
	"github.com/academiagest/registro-rrsif/internal/application/registro"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
	"github.com/academiagest/registro-rrsif/internal/infrastructure/firma"
	infrapdf "github.com/academiagest/registro-rrsif/internal/infrastructure/pdf"
	"github.com/academiagest/registro-rrsif/internal/infrastructure/postgres"
	"github.com/academiagest/registro-rrsif/internal/infrastructure/reloj"
	httpRouter "github.com/academiagest/registro-rrsif/internal/interfaces/http"
	"github.com/academiagest/registro-rrsif/pkg/config"
	"github.com/academiagest/registro-rrsif/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("id_sistema", cfg.RRSIF.IDSistema).
		Msg("iniciando aplicación")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Sin clave de firma no se arranca: cada registro debe salir firmado.
	firmador, err := firma.NewFirmadorHMAC(cfg.RRSIF.ClaveFirma)
	if err != nil {
		log.Fatal().Err(err).Msg("clave de firma")
	}

	verificadorReloj := reloj.NewVerificadorHTTP(reloj.Config{
		URL:            cfg.RRSIF.URLReferenciaReloj,
		UmbralSegundos: cfg.RRSIF.UmbralDerivaSegundos,
		Timeout:        time.Duration(cfg.RRSIF.TimeoutRelojSegundos) * time.Second,
		CacheTTL:       time.Duration(cfg.RRSIF.CacheRelojSegundos) * time.Second,
	})

	txRunner := postgres.NewTxRunner(pool)
	operadorRepo := postgres.NewOperadorRepository(pool)

	// Los contadores jamás se fían de su última fila tras un crash.
	secuenciaRepo := postgres.NewSecuenciaRepository(pool)
	if err := secuenciaRepo.Resincronizar(ctx); err != nil {
		log.Fatal().Err(err).Msg("resincronizar secuencias")
	}

	regCfg := registro.Config{
		IDSistema:        cfg.RRSIF.IDSistema,
		VersionSoftware:  cfg.RRSIF.VersionSoftware,
		BloquearSiDeriva: cfg.RRSIF.BloquearSiDeriva,
	}
	eventosUC := registro.NewRegistroEventos(txRunner, regCfg, log,
		time.Duration(cfg.RRSIF.IntervaloResumenHoras)*time.Hour)
	altaUC := registro.NewAltaFactura(txRunner, firmador, verificadorReloj, eventosUC, regCfg, log)
	cicloUC := registro.NewCicloVida(txRunner, firmador, eventosUC, regCfg, log)
	verificacionUC := registro.NewVerificacion(txRunner, eventosUC, log)
	exportUC := registro.NewExport(txRunner, eventosUC, regCfg, log)
	authUC := auth.NewAuthUseCase(operadorRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	pdfGenerator := infrapdf.NewMarotoPDFGenerator()

	if _, err := eventosUC.Registrar(ctx, entity.EventoInicioOperacion, "arranque del sistema", entity.ActorSistema, nil); err != nil {
		log.Error().Err(err).Msg("registrar inicio de operación")
	}
	eventosUC.IniciarResumenPeriodico(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Registro RRSIF API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AltaFactura:  altaUC,
		CicloVida:    cicloUC,
		Eventos:      eventosUC,
		Verificacion: verificacionUC,
		Export:       exportUC,
		Reloj:        verificadorReloj,
		PDF:          pdfGenerator,
		AuthUC:       authUC,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	// El apagado también es un evento del registro.
	if _, err := eventosUC.Registrar(ctx, entity.EventoApagadoReinicio, "apagado ordenado del sistema", entity.ActorSistema, nil); err != nil {
		log.Error().Err(err).Msg("registrar apagado")
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
