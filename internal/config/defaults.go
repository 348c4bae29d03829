package config

import "time"

// DefaultSystemPrompt is the instruction used until an operator replaces it.
const DefaultSystemPrompt = `Eres un Arquitecto de Soluciones AWS experto. Tu comportamiento debe ser:

## IDENTIDAD
- Rol: Arquitecto de Soluciones AWS Senior
- Especialidad: Diseño de arquitecturas cloud, optimización de costos, mejores prácticas

## COMPORTAMIENTO CONVERSACIONAL
- SIEMPRE haz preguntas específicas antes de generar entregables complejos
- Para solicitudes como "necesito costos" o "crea un diagrama", pregunta PRIMERO:
  * ¿Qué servicios específicos necesitas?
  * ¿Cuál es tu presupuesto estimado?
  * ¿Qué región prefieres?
  * ¿Tienes requisitos de compliance?
- Solo genera entregables después de tener contexto suficiente
- Sé conversacional y educativo, no solo transaccional

## RESPONSABILIDADES
1. **Arquitectura**: Diseñar soluciones escalables y seguras
2. **Costos**: Optimizar gastos y proporcionar estimaciones precisas
3. **Mejores Prácticas**: Aplicar Well-Architected Framework
4. **Educación**: Explicar decisiones técnicas claramente

## RESTRICCIONES
- No generes código malicioso
- No hagas suposiciones sobre datos sensibles
- Siempre considera seguridad y compliance
- Pregunta por detalles antes de crear entregables complejos`

// Default returns a configuration that validates without a config file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    240 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			BodyLimit:       "1M",
			UploadBodyLimit: "25M",
		},
		AWS: AWSConfig{Region: "us-east-1"},
		Bedrock: BedrockConfig{
			Timeout:      30 * time.Second,
			DefaultModel: "anthropic.claude-3-5-sonnet-20240620-v1:0",
			GenericPrice: PriceConfig{InputPer1K: 0.001, OutputPer1K: 0.001},
			Models: []ModelConfig{
				{
					ID:             "anthropic.claude-3-5-sonnet-20240620-v1:0",
					Name:           "Claude 3.5 Sonnet",
					Provider:       "Anthropic",
					Family:         familyAnthropic,
					MaxTokens:      8192,
					Price:          PriceConfig{InputPer1K: 0.003, OutputPer1K: 0.015},
					SupportsSystem: true,
				},
				{
					ID:             "amazon.nova-pro-v1:0",
					Name:           "Amazon Nova Pro",
					Provider:       "Amazon",
					Family:         familyNova,
					MaxTokens:      4096,
					Price:          PriceConfig{InputPer1K: 0.0008, OutputPer1K: 0.0032},
					SupportsSystem: true,
				},
			},
		},
		Tools: ToolsConfig{
			Endpoint:    "http://localhost:8001/call-tool",
			HealthURL:   "http://localhost:8001/health",
			Timeout:     180 * time.Second,
			DefaultTool: "prompt_understanding",
			Allowed: []string{
				"prompt_understanding",
				"generate_diagram",
				"list_icons",
				"get_diagram_examples",
				"search_documentation",
				"read_documentation",
				"recommend",
				"create_resource",
				"read_resource",
				"update_resource",
				"delete_resource",
				"list_resources",
				"get_resource_schema",
				"generate_template",
			},
			MinUsefulChars: 100,
			ToolCallCost:   0.002,
		},
		Intent: IntentConfig{
			Conversational: []string{
				"hola", "hello", "hi", "qué tal", "como estas", "gracias", "thanks",
				"ok", "entiendo", "perfecto", "explica", "explain", "qué es", "what is",
				"cómo funciona",
			},
			ToolTriggers: []string{
				"diagrama", "diagram", "arquitectura visual", "esquema", "blueprint",
				"costos detallados", "costs", "pricing", "presupuesto", "budget",
				"proyecto completo", "implementación", "entregables", "deliverables",
				"documentación", "plan de migración", "migration plan",
			},
			Deliverables: []string{
				"diagrama", "diagram", "esquema", "blueprint", "visual",
				"costos detallados", "detailed costs", "presupuesto completo",
				"proyecto completo", "full project", "implementación completa",
				"entregables", "deliverables", "documentos", "documents",
			},
		},
		Extraction: ExtractionConfig{
			LargeJSONBytes: 500,
			LocalRoots:     []string{"/tmp/generated-diagrams", "./generated-diagrams"},
			MaxFileBytes:   20 << 20,
			FetchTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Bucket:           "controlwebinars2025",
			ArtifactCategory: "archivos",
			UploadCategory:   "generated-files",
			DefaultProject:   "bedrock-playground",
			Presign:          true,
			PresignExpiry:    time.Hour,
		},
		Prompt: PromptConfig{Default: DefaultSystemPrompt},
		Security: SecurityConfig{
			RateLimit:        RateLimitConfig{Requests: 10, Window: time.Minute},
			MaxMessageLength: 10000,
			MaxTokens:        4096,
			AuditRetention:   7 * 24 * time.Hour,
			SuspiciousKeywords: []string{
				"hack", "exploit", "vulnerability", "injection", "bypass",
				"admin", "root", "password", "token", "secret",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: cacheBackendMemory,
			TTL:     time.Hour,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}
