package client

// Route tables for the standard pipeline stages.

func NewLoadController(c *Client) *StageController {
	return NewStageController(c, StageRoutes{
		Config: "/documents/%d/load-config",
		Run:    "/documents/%d/parse",
	})
}

func NewChunkController(c *Client) *StageController {
	return NewStageController(c, StageRoutes{
		Config: "/documents/%d/chunk-config",
		Run:    "/documents/%d/chunks",
	})
}

func NewEmbedController(c *Client) *StageController {
	return NewStageController(c, StageRoutes{
		Config: "/documents/%d/embed-config",
		Run:    "/documents/%d/embeddings",
	})
}

func NewStoreController(c *Client) *StageController {
	return NewStageController(c, StageRoutes{
		Config: "/documents/%d/store-config",
		Run:    "/documents/%d/vec-store",
	})
}

func NewGenerateController(c *Client) *StageController {
	return NewStageController(c, StageRoutes{
		Config: "/documents/%d/generate-config",
		Run:    "/documents/%d/generate",
	})
}
