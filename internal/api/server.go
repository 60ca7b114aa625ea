// Package api exposes the studio pipeline over HTTP. Every stage service
// is a field on the Server; handlers do request decoding and error
// mapping, nothing else.
package api

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"historymaker/internal/audio"
	"historymaker/internal/clips"
	"historymaker/internal/export"
	"historymaker/internal/music"
	"historymaker/internal/planner"
	"historymaker/internal/script"
	"historymaker/internal/store"
	"historymaker/internal/visuals"
)

type Server struct {
	store   *store.MemoryStore
	planner *planner.Service
	scripts *script.Service
	wiki    *script.WikipediaClient
	audio   *audio.Service
	visuals *visuals.Service
	clips   *clips.Service
	music   *music.Service
	exports *export.Service
	log     *slog.Logger

	allowedOrigins []string
}

type Services struct {
	Store   *store.MemoryStore
	Planner *planner.Service
	Scripts *script.Service
	Wiki    *script.WikipediaClient
	Audio   *audio.Service
	Visuals *visuals.Service
	Clips   *clips.Service
	Music   *music.Service
	Exports *export.Service
}

func NewServer(svcs Services, allowedOrigins []string, logger *slog.Logger) *Server {
	return &Server{
		store:          svcs.Store,
		planner:        svcs.Planner,
		scripts:        svcs.Scripts,
		wiki:           svcs.Wiki,
		audio:          svcs.Audio,
		visuals:        svcs.Visuals,
		clips:          svcs.Clips,
		music:          svcs.Music,
		exports:        svcs.Exports,
		log:            logger,
		allowedOrigins: allowedOrigins,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(s.log))

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.allowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Trace-Id")
	r.Use(cors.New(corsCfg))

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		writeData(c, 200, gin.H{"status": "ok"})
	})

	v1.POST("/auth/signup", s.signup)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.store))
	{
		authed.GET("/me", s.me)
		authed.GET("/settings", s.getSettings)
		authed.PUT("/settings", s.putSettings)
		authed.GET("/voices", s.listVoices)

		authed.POST("/series", s.createSeries)
		authed.GET("/series", s.listSeries)
		authed.GET("/series/:series_id", s.getSeries)
		authed.PATCH("/series/:series_id", s.patchSeries)
		authed.DELETE("/series/:series_id", s.deleteSeries)

		authed.POST("/series/:series_id/plan", s.generateCalendar)
		authed.POST("/series/:series_id/plan/slot", s.regenerateSlot)
		authed.GET("/planner/lucky", s.luckyTopic)

		authed.GET("/series/:series_id/videos", s.listVideos)
		authed.GET("/videos/:video_id", s.getVideo)
		authed.PATCH("/videos/:video_id", s.patchVideo)
		authed.DELETE("/videos/:video_id", s.deleteVideo)

		authed.POST("/script/generate", s.generateScript)
		authed.GET("/videos/:video_id/script", s.getScript)
		authed.GET("/wikipedia/search", s.wikipediaSearch)
		authed.GET("/wikipedia/content", s.wikipediaContent)
		authed.POST("/wikipedia/keywords", s.wikipediaKeywords)

		authed.POST("/audio/tags", s.tagAudio)
		authed.POST("/audio/generate", s.generateTake)
		authed.POST("/audio/save", s.saveTake)
		authed.GET("/scripts/:script_id/audio", s.listAudio)
		authed.DELETE("/audio/:audio_id", s.deleteAudio)

		authed.POST("/scripts/:script_id/visuals/auto-tag", s.autoTag)
		authed.GET("/scripts/:script_id/visuals", s.listVisuals)
		authed.POST("/visuals/:visual_id/search", s.searchImages)
		authed.GET("/visuals/:visual_id/variants", s.listVariants)
		authed.POST("/visuals/:visual_id/variants/from-url", s.addVariantFromURL)
		authed.POST("/visuals/:visual_id/variants/generate", s.generateVariant)
		authed.POST("/visuals/:visual_id/variants/upload", s.uploadVariant)
		authed.POST("/variants/:variant_id/filter", s.filterVariant)
		authed.POST("/variants/:variant_id/select", s.selectVariant)

		authed.POST("/visuals/:visual_id/clip", s.generateClip)
		authed.GET("/visuals/:visual_id/clip", s.getClip)
		authed.POST("/scripts/:script_id/clips/generate-all", s.generateAllClips)
		authed.GET("/scripts/:script_id/clips", s.listClips)

		authed.POST("/videos/:video_id/music/analyze", s.analyzeMusic)
		authed.POST("/music/search", s.searchMusic)
		authed.PUT("/videos/:video_id/music", s.selectMusic)
		authed.GET("/videos/:video_id/music", s.getMusic)

		authed.GET("/videos/:video_id/export", s.exportStatus)
		authed.GET("/videos/:video_id/export/asset", s.exportAsset)
		authed.GET("/videos/:video_id/export/download", s.exportDownload)
		authed.GET("/videos/:video_id/export/download-all", s.exportDownloadAll)
	}

	return r
}
