package drawing

var mockDrawings = []ImageOption{
	{ID: "1", URL: "https://images.unsplash.com/photo-1581344947731-c678889a686e?q=80&w=1000", Alt: "Football players running on field"},
	{ID: "2", URL: "https://images.unsplash.com/photo-1624526267942-ab0c0e53d1c1?q=80&w=1000", Alt: "Football players with guitars"},
	{ID: "3", URL: "https://images.unsplash.com/photo-1614632537197-38a17061c2bd?q=80&w=1000", Alt: "Children playing football"},
	{ID: "4", URL: "https://images.unsplash.com/photo-1560272564-c83b66b1ad12?q=80&w=1000", Alt: "Football stadium"},
}

var mockOutlines = []ImageOption{
	{ID: "1", URL: "https://images.unsplash.com/photo-1581344947731-c678889a686e?q=80&w=1000&auto=format&fit=crop&ixlib=rb-4.0.3", Alt: "Outline 1"},
	{ID: "2", URL: "https://images.unsplash.com/photo-1624526267942-ab0c0e53d1c1?q=80&w=1000&auto=format&fit=crop&ixlib=rb-4.0.3", Alt: "Outline 2"},
	{ID: "3", URL: "https://images.unsplash.com/photo-1614632537197-38a17061c2bd?q=80&w=1000&auto=format&fit=crop&ixlib=rb-4.0.3", Alt: "Outline 3"},
}

// MockDrawings returns the four demo drawings (ids "1".."4").
func MockDrawings() []ImageOption { return Clone(mockDrawings) }

// MockOutlines returns the three demo outlines (ids "1".."3").
func MockOutlines() []ImageOption { return Clone(mockOutlines) }
